package geometry

import (
	"fmt"
	"strings"
)

// RayFlags selects which SurfaceInteraction fields are computed and which
// differentiation policy applies. Fields not selected are left undefined.
type RayFlags uint32

const (
	// FlagMinimal computes t, p, the geometric normal and the shading normal
	FlagMinimal RayFlags = 1 << iota
	// FlagUV computes texture coordinates
	FlagUV
	// FlagDPDUV computes dp/du and dp/dv
	FlagDPDUV
	// FlagDNGDUV requests geometric normal partials, which are zero for
	// triangles; the flag is accepted for completeness
	FlagDNGDUV
	// FlagDNSDUV computes dn/du and dn/dv of the shading normal
	FlagDNSDUV
	// FlagShadingFrame computes the full shading frame and Wi
	FlagShadingFrame
	// FlagBoundaryTest computes the silhouette proximity metric
	FlagBoundaryTest
	// FlagFollowShape freezes the barycentric coordinates of the hit so the
	// interaction moves rigidly with the mesh
	FlagFollowShape
	// FlagDetachShape ignores gradients carried by the mesh buffers
	FlagDetachShape
)

// FlagAll computes every field
const FlagAll = FlagMinimal | FlagUV | FlagDPDUV | FlagDNGDUV | FlagDNSDUV | FlagShadingFrame | FlagBoundaryTest

// Has reports whether every bit of f is set
func (r RayFlags) Has(f RayFlags) bool {
	return r&f == f
}

func (r RayFlags) needsUV() bool {
	return r&(FlagUV|FlagDPDUV|FlagDNSDUV|FlagShadingFrame) != 0
}

func (r RayFlags) needsDPDUV() bool {
	return r&(FlagDPDUV|FlagShadingFrame) != 0
}

var flagNames = []struct {
	flag RayFlags
	name string
}{
	{FlagMinimal, "minimal"},
	{FlagUV, "uv"},
	{FlagDPDUV, "dpduv"},
	{FlagDNGDUV, "dngduv"},
	{FlagDNSDUV, "dnsduv"},
	{FlagShadingFrame, "shading_frame"},
	{FlagBoundaryTest, "boundary_test"},
	{FlagFollowShape, "follow_shape"},
	{FlagDetachShape, "detach_shape"},
}

func (r RayFlags) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, f := range flagNames {
		if r&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseRayFlags accepts "all" or a "|" or "," separated list of flag names
func ParseRayFlags(s string) (RayFlags, error) {
	var r RayFlags
	for _, part := range strings.FieldsFunc(s, func(c rune) bool { return c == '|' || c == ',' || c == ' ' }) {
		part = strings.ToLower(part)
		if part == "all" {
			r |= FlagAll
			continue
		}
		found := false
		for _, f := range flagNames {
			if f.name == part {
				r |= f.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown ray flag %q", part)
		}
	}
	return r, nil
}
