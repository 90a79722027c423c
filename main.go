// meshprobe traces a grid of probe rays against a triangle mesh and reports
// surface interaction statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/df07/go-mesh-interaction/pkg/camera"
	"github.com/df07/go-mesh-interaction/pkg/config"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/geometry"
	"github.com/df07/go-mesh-interaction/pkg/loaders"
	"github.com/df07/go-mesh-interaction/pkg/logger"
	"github.com/df07/go-mesh-interaction/pkg/mesh"
)

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshprobe: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags are the command line overrides. They take priority over the
// config file.
type cliFlags struct {
	configPath string
	plyPath    string
	writePath  string
	saveConfig string
	debug      bool
	quiet      bool
	grad       bool
	rayFlags   string
	mode       string
	workers    int
	resolution int
	projection string
	coherent   bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("meshprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&f.plyPath, "ply", "", "Binary PLY mesh to probe (default: built-in rectangle)")
	fs.StringVar(&f.writePath, "write", "", "Write the probed mesh to this PLY file")
	fs.StringVar(&f.saveConfig, "save-config", "", "Write the effective config to this path")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.quiet, "quiet", false, "Hide the progress bar")
	fs.BoolVar(&f.grad, "grad", false, "Backpropagate hit depth into the vertex positions")
	fs.StringVar(&f.rayFlags, "flags", "", "Ray flags, e.g. 'all' or 'minimal|uv|boundary_test'")
	fs.StringVar(&f.mode, "mode", "", "Evaluation mode: 'eager' or 'recorded'")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent chunks (0 = all CPUs)")
	fs.IntVar(&f.resolution, "res", 0, "Probe grid resolution")
	fs.StringVar(&f.projection, "projection", "", "Probe projection: 'orthographic' or 'perspective'")
	fs.BoolVar(&f.coherent, "coherent", false, "Reorder rays into coherent chunks")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "meshprobe - probe a triangle mesh with a grid of rays")
		fmt.Fprintln(stderr, "Usage: meshprobe [options]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// applyFlags copies the explicitly set flags over cfg
func applyFlags(cfg *config.Config, f *cliFlags, fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "flags":
			cfg.Probe.Flags = f.rayFlags
		case "mode":
			cfg.Evaluation.Mode = f.mode
		case "workers":
			cfg.Evaluation.Workers = f.workers
		case "res":
			cfg.Probe.Resolution = f.resolution
		case "projection":
			cfg.Probe.Projection = f.projection
		case "coherent":
			cfg.Evaluation.Coherent = f.coherent
		}
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f, fs)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.LoggerFileConfig(), stderr); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if f.saveConfig != "" {
		if err := cfg.SaveTo(f.saveConfig); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		logger.Info("config saved", zap.String("path", f.saveConfig))
	}

	m, err := loadMesh(f.plyPath, cfg.Probe.FaceNormals)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, m.String())

	result, err := probe(ctx, m, cfg, f.grad, progressWriter(stderr, f.quiet))
	if err != nil {
		logger.Error("probe failed", zap.String("mesh", m.Name()), zap.Error(err))
		return err
	}
	printResult(stdout, result)

	if f.writePath != "" {
		if err := loaders.WritePLYFile(f.writePath, m); err != nil {
			logger.Error("failed to write mesh", zap.String("path", f.writePath), zap.Error(err))
			return err
		}
		fmt.Fprintf(stdout, "Mesh saved as %s\n", f.writePath)
	}
	return nil
}

func progressWriter(stderr io.Writer, quiet bool) io.Writer {
	if quiet {
		return nil
	}
	return stderr
}

// loadMesh reads a PLY file, or builds the built-in rectangle when path is
// empty
func loadMesh(path string, faceNormals bool) (*mesh.Mesh, error) {
	if path != "" {
		return loaders.LoadPLYMesh(path, loaders.LoadOptions{FaceNormals: faceNormals})
	}

	// The square [-1, 1]² in the z=0 plane with uv = (p + 1) / 2
	positions := []float32{
		1, -1, 0,
		-1, 1, 0,
		-1, -1, 0,
		1, 1, 0,
	}
	faces := []uint32{0, 1, 2, 0, 3, 1}
	texcoords := []float32{1, 0, 0, 1, 0, 0, 1, 1}
	return mesh.NewFromBuffers("rectangle", positions, faces, nil, texcoords, mesh.Options{
		HasVertexNormals:   !faceNormals,
		HasVertexTexcoords: true,
		FaceNormals:        faceNormals,
	})
}

type probeResult struct {
	Resolution [2]int
	Flags      geometry.RayFlags
	Config     diff.Config
	Stats      geometry.BatchStats
	Elapsed    time.Duration
	// GradNorm is the L2 norm of d(sum of hit depths)/d(positions), or a
	// negative value when not requested
	GradNorm float64
}

// probe frames the mesh, traces the ray grid and summarizes the batch
func probe(ctx context.Context, m *mesh.Mesh, cfg *config.Config, grad bool, progress io.Writer) (*probeResult, error) {
	dc, err := cfg.Evaluation.DiffConfig()
	if err != nil {
		return nil, err
	}
	flags, err := cfg.Probe.RayFlags()
	if err != nil {
		return nil, err
	}
	projection, err := cfg.Probe.CameraProjection()
	if err != nil {
		return nil, err
	}

	cam, err := camera.NewCamera(camera.Frame(m.BoundingBox(), cfg.Probe.ViewDirection(), cfg.Probe.Resolution, projection))
	if err != nil {
		return nil, err
	}
	coreRays := cam.Rays()
	rays := make([]diff.Ray, len(coreRays))
	for i, r := range coreRays {
		rays[i] = diff.NewRay(r)
	}

	if grad {
		m.Positions().EnableGrad()
		m.Positions().ZeroGrad()
	}

	engine := geometry.NewEngine(geometry.NewBVH(geometry.NewMeshShape(m)), dc)
	if progress != nil {
		// Every ray passes through both the preliminary and the expansion stage
		bar := progressbar.NewOptions(2*len(rays),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("probing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		engine.OnChunk = func(n int) {
			if err := bar.Add(n); err != nil {
				logger.Debug("progress bar update failed", zap.Error(err))
			}
		}
	}

	logger.Info("probe started",
		zap.String("mesh", m.Name()),
		zap.Int("rays", len(rays)),
		zap.Stringer("flags", flags),
		zap.Stringer("mode", dc.Mode),
		zap.Int("workers", dc.Workers))

	start := time.Now()
	sis, err := engine.RayIntersect(ctx, rays, flags)
	if err != nil {
		return nil, err
	}
	width, height := cam.Resolution()
	result := &probeResult{
		Resolution: [2]int{width, height},
		Flags:      flags,
		Config:     dc,
		Stats:      geometry.Summarize(sis),
		GradNorm:   -1,
	}

	if grad {
		for _, si := range sis {
			if !si.IsValid() {
				continue
			}
			if err := si.Backward(geometry.Differential{T: 1}); err != nil {
				return nil, fmt.Errorf("backward pass: %w", err)
			}
		}
		result.GradNorm = floats.Norm(m.Positions().Grad(), 2)
	}
	result.Elapsed = time.Since(start)

	logger.Info("probe completed",
		zap.Int("hits", result.Stats.Hits),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func printResult(w io.Writer, r *probeResult) {
	s := r.Stats
	fmt.Fprintf(w, "Probe %dx%d (%s, %d workers, chunks of %d)\n",
		r.Resolution[0], r.Resolution[1], r.Config.Mode, r.Config.Workers, r.Config.ChunkSize)
	fmt.Fprintf(w, "Flags: %s\n", r.Flags)
	fmt.Fprintf(w, "Hits: %d / %d\n", s.Hits, s.Rays)
	if s.Hits > 0 {
		fmt.Fprintf(w, "Mean t: %.6g\n", s.MeanT)
	}
	if r.Flags.Has(geometry.FlagBoundaryTest) && s.Hits > 0 {
		fmt.Fprintf(w, "Boundary test: min %.6g, max %.6g\n", s.MinBoundary, s.MaxBoundary)
	}
	if r.GradNorm >= 0 {
		fmt.Fprintf(w, "Position gradient norm: %.6g\n", r.GradNorm)
	}
	fmt.Fprintf(w, "Elapsed: %v\n", r.Elapsed)
}
