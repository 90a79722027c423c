package geometry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/diff"
	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// Candidate is a shape together with the primitives worth testing against
// a ray; nil Prims means every primitive of the shape
type Candidate struct {
	Shape Shape
	Prims []int
}

// SpatialIndex supplies the candidates for a ray. Building and maintaining
// acceleration structures is the index's business; the engine only asks.
type SpatialIndex interface {
	Candidates(ray core.Ray) []Candidate
}

// ShapeList is a brute-force index: every shape whose bounding box the ray
// crosses is a candidate, with all of its primitives
type ShapeList []Shape

// Candidates implements SpatialIndex
func (l ShapeList) Candidates(ray core.Ray) []Candidate {
	var out []Candidate
	for _, s := range l {
		if s.BoundingBox().Hit(ray, ray.MinT, ray.MaxT) {
			out = append(out, Candidate{Shape: s})
		}
	}
	return out
}

// Engine runs batched ray queries. Rays are independent: the batch is split
// into chunks that are processed concurrently, and results are written back
// in input order whatever the scheduling.
type Engine struct {
	index SpatialIndex
	cfg   diff.Config

	// OnChunk, if set, is called with the number of rays after each chunk
	// completes. It may be called from several goroutines at once.
	OnChunk func(rays int)
}

// NewEngine creates an engine over index
func NewEngine(index SpatialIndex, cfg diff.Config) *Engine {
	return &Engine{index: index, cfg: cfg.Normalized()}
}

// Config returns the evaluation configuration
func (e *Engine) Config() diff.Config {
	return e.cfg
}

// IntersectPreliminary finds the nearest hit for every ray
func (e *Engine) IntersectPreliminary(ctx context.Context, rays []core.Ray) ([]PreliminaryIntersection, error) {
	start := time.Now()
	out := make([]PreliminaryIntersection, len(rays))

	err := e.schedule(ctx, e.order(rays), func(i int) {
		out[i] = e.intersect(rays[i])
	})
	if err != nil {
		return nil, fmt.Errorf("preliminary intersection: %w", err)
	}

	hits := 0
	for _, pi := range out {
		if pi.IsValid() {
			hits++
		}
	}
	logger.Debug("preliminary batch traced",
		zap.Int("rays", len(rays)),
		zap.Int("hits", hits),
		zap.Int("workers", e.cfg.Workers),
		zap.Bool("coherent", e.cfg.Coherent),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// Expand computes the surface interaction of each preliminary hit. pis and
// rays must have the same length.
func (e *Engine) Expand(ctx context.Context, pis []PreliminaryIntersection, rays []diff.Ray, flags RayFlags) ([]*SurfaceInteraction, error) {
	if len(pis) != len(rays) {
		return nil, fmt.Errorf("expand: %d preliminary intersections for %d rays", len(pis), len(rays))
	}

	start := time.Now()
	out := make([]*SurfaceInteraction, len(rays))
	plain := make([]core.Ray, len(rays))
	for i, r := range rays {
		plain[i] = r.Detach()
	}

	err := e.schedule(ctx, e.order(plain), func(i int) {
		out[i] = pis[i].ComputeSurfaceInteraction(rays[i], flags, e.cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("surface interaction: %w", err)
	}

	logger.Debug("surface interactions expanded",
		zap.Int("rays", len(rays)),
		zap.Stringer("flags", flags),
		zap.Stringer("mode", e.cfg.Mode),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// RayIntersect traces and expands in one call
func (e *Engine) RayIntersect(ctx context.Context, rays []diff.Ray, flags RayFlags) ([]*SurfaceInteraction, error) {
	plain := make([]core.Ray, len(rays))
	for i, r := range rays {
		plain[i] = r.Detach()
	}
	pis, err := e.IntersectPreliminary(ctx, plain)
	if err != nil {
		return nil, err
	}
	return e.Expand(ctx, pis, rays, flags)
}

// intersect returns the nearest valid hit over all candidates
func (e *Engine) intersect(ray core.Ray) PreliminaryIntersection {
	best := Miss()
	for _, c := range e.index.Candidates(ray) {
		pi := c.Shape.IntersectPreliminary(ray, c.Prims)
		if pi.IsValid() && pi.T < best.T {
			best = pi
		}
	}
	return best
}

// order returns the processing order of the rays
func (e *Engine) order(rays []core.Ray) []int {
	if e.cfg.Coherent {
		return coherentOrder(rays)
	}
	order := make([]int, len(rays))
	for i := range order {
		order[i] = i
	}
	return order
}

// schedule runs fn over order in chunks, at most cfg.Workers at a time
func (e *Engine) schedule(ctx context.Context, order []int, fn func(i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for start := 0; start < len(order); start += e.cfg.ChunkSize {
		chunk := order[start:min(start+e.cfg.ChunkSize, len(order))]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, i := range chunk {
				fn(i)
			}
			if e.OnChunk != nil {
				e.OnChunk(len(chunk))
			}
			return nil
		})
	}
	return g.Wait()
}

// coherentOrder sorts rays by direction octant, then by the Morton code of
// their origin within the batch's origin bounds, so that each chunk holds
// rays that tend to visit the same geometry
func coherentOrder(rays []core.Ray) []int {
	bounds := core.EmptyAABB()
	for _, r := range rays {
		if r.Origin.IsFinite() {
			bounds = bounds.ExpandPoint(r.Origin)
		}
	}
	size := bounds.Size()

	quantize := func(v, lo, extent float64) uint64 {
		if !(extent > 0) || math.IsNaN(v) {
			return 0
		}
		q := (v - lo) / extent * 1023
		return uint64(math.Max(0, math.Min(1023, q)))
	}

	keys := make([]uint64, len(rays))
	for i, r := range rays {
		octant := uint64(0)
		if r.Direction.X < 0 {
			octant |= 1
		}
		if r.Direction.Y < 0 {
			octant |= 2
		}
		if r.Direction.Z < 0 {
			octant |= 4
		}
		code := spreadBits(quantize(r.Origin.X, bounds.Min.X, size.X)) |
			spreadBits(quantize(r.Origin.Y, bounds.Min.Y, size.Y))<<1 |
			spreadBits(quantize(r.Origin.Z, bounds.Min.Z, size.Z))<<2
		keys[i] = octant<<30 | code
	}

	order := make([]int, len(rays))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})
	return order
}

// spreadBits inserts two zero bits between each of the low 10 bits of x
func spreadBits(x uint64) uint64 {
	x &= 0x3ff
	x = (x | x<<16) & 0x30000ff
	x = (x | x<<8) & 0x300f00f
	x = (x | x<<4) & 0x30c30c3
	x = (x | x<<2) & 0x9249249
	return x
}
