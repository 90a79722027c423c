// Package camera generates batches of probe rays over a rectangular view.
package camera

import (
	"fmt"
	"math"
	"strings"

	"github.com/df07/go-mesh-interaction/pkg/core"
)

// Projection selects how rays leave the view plane
type Projection int

const (
	// Orthographic rays are parallel and start on the view plane
	Orthographic Projection = iota
	// Perspective rays share the camera center
	Perspective
)

func (p Projection) String() string {
	if p == Perspective {
		return "perspective"
	}
	return "orthographic"
}

// ParseProjection accepts "orthographic" or "perspective"
func ParseProjection(s string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "orthographic", "ortho", "":
		return Orthographic, nil
	case "perspective", "pinhole":
		return Perspective, nil
	default:
		return Orthographic, fmt.Errorf("unknown projection %q", s)
	}
}

// Config describes a camera. Width is the horizontal ray count; the vertical
// count follows from AspectRatio.
type Config struct {
	Projection  Projection
	Center      core.Vec3
	LookAt      core.Vec3
	Up          core.Vec3
	Width       int
	AspectRatio float64
	VFov        float64 // Perspective: vertical field of view in degrees
	ViewHeight  float64 // Orthographic: world-space height of the view
}

// Camera generates rays for a view
type Camera struct {
	config          Config
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	forward         core.Vec3
	height          int
}

// NewCamera validates config and builds the view basis
func NewCamera(config Config) (*Camera, error) {
	if config.Width <= 0 || !(config.AspectRatio > 0) {
		return nil, fmt.Errorf("camera: invalid resolution %d at aspect %v", config.Width, config.AspectRatio)
	}
	w := config.Center.Subtract(config.LookAt)
	if !(w.Length() > 0) {
		return nil, fmt.Errorf("camera: center and look-at coincide")
	}
	w = w.Normalize()
	u := config.Up.Cross(w)
	if !(u.Length() > 1e-9) {
		return nil, fmt.Errorf("camera: up vector %v is parallel to the view direction", config.Up)
	}
	u = u.Normalize()
	v := w.Cross(u)

	var viewportHeight float64
	switch config.Projection {
	case Perspective:
		if !(config.VFov > 0 && config.VFov < 180) {
			return nil, fmt.Errorf("camera: field of view %v out of range", config.VFov)
		}
		viewportHeight = 2 * math.Tan(config.VFov*math.Pi/360)
	default:
		if !(config.ViewHeight > 0) {
			return nil, fmt.Errorf("camera: view height %v must be positive", config.ViewHeight)
		}
		viewportHeight = config.ViewHeight
	}
	viewportWidth := config.AspectRatio * viewportHeight

	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(viewportHeight)
	lowerLeftCorner := config.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5))
	if config.Projection == Perspective {
		lowerLeftCorner = lowerLeftCorner.Subtract(w)
	}

	height := int(math.Round(float64(config.Width) / config.AspectRatio))
	if height < 1 {
		height = 1
	}

	return &Camera{
		config:          config,
		origin:          config.Center,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		forward:         w.Negate(),
		height:          height,
	}, nil
}

// Resolution returns the ray grid size
func (c *Camera) Resolution() (int, int) {
	return c.config.Width, c.height
}

// Forward returns the unit viewing direction
func (c *Camera) Forward() core.Vec3 {
	return c.forward
}

// GetRay generates a ray for view coordinates (s, t) where 0 <= s,t <= 1
// and (0, 0) is the lower left corner
func (c *Camera) GetRay(s, t float64) core.Ray {
	onPlane := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t))

	if c.config.Projection == Perspective {
		return core.NewRay(c.origin, onPlane.Subtract(c.origin))
	}
	return core.NewRay(onPlane, c.forward)
}

// Rays returns one ray through the center of every grid cell, row by row
// from the top
func (c *Camera) Rays() []core.Ray {
	width, height := c.Resolution()
	rays := make([]core.Ray, 0, width*height)
	for j := 0; j < height; j++ {
		t := 1 - (float64(j)+0.5)/float64(height)
		for i := 0; i < width; i++ {
			s := (float64(i) + 0.5) / float64(width)
			rays = append(rays, c.GetRay(s, t))
		}
	}
	return rays
}

// Frame returns a square view that looks at box along dir and covers it
// with some margin
func Frame(box core.AABB, dir core.Vec3, width int, projection Projection) Config {
	dir = dir.Normalize()
	center := box.Center()
	radius := 0.5 * box.Size().Length()
	if !(radius > 1e-6) || math.IsInf(radius, 0) {
		radius = 1
	}

	up := core.NewVec3(0, 1, 0)
	if math.Abs(dir.Dot(up)) > 0.99 {
		up = core.NewVec3(0, 0, 1)
	}

	config := Config{
		Projection:  projection,
		LookAt:      center,
		Up:          up,
		Width:       width,
		AspectRatio: 1,
	}
	if projection == Perspective {
		config.VFov = 40
		distance := 1.1 * radius / math.Sin(config.VFov*math.Pi/360)
		config.Center = center.Subtract(dir.Multiply(distance))
	} else {
		config.ViewHeight = 2.2 * radius
		config.Center = center.Subtract(dir.Multiply(2 * radius))
	}
	return config
}
