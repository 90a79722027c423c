package geometry

import "math"

// BatchStats summarizes a batch of surface interactions
type BatchStats struct {
	Rays        int     // Number of interactions in the batch
	Hits        int     // Number of valid interactions
	MeanT       float64 // Mean hit distance over valid interactions
	MinBoundary float64 // Smallest finite boundary test value among hits
	MaxBoundary float64 // Largest finite boundary test value among hits
}

// Summarize computes BatchStats. Boundary values are only meaningful when
// the batch was expanded with FlagBoundaryTest.
func Summarize(sis []*SurfaceInteraction) BatchStats {
	stats := BatchStats{Rays: len(sis)}
	minB, maxB := math.Inf(1), math.Inf(-1)
	sumT := 0.0

	for _, si := range sis {
		if si == nil || !si.IsValid() {
			continue
		}
		stats.Hits++
		sumT += si.T
		if b := si.BoundaryTest; !math.IsInf(b, 0) && !math.IsNaN(b) {
			minB = math.Min(minB, b)
			maxB = math.Max(maxB, b)
		}
	}

	if stats.Hits > 0 {
		stats.MeanT = sumT / float64(stats.Hits)
	}
	if minB <= maxB {
		stats.MinBoundary, stats.MaxBoundary = minB, maxB
	}
	return stats
}
