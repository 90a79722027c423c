package geometry

import (
	"go.uber.org/zap"

	"github.com/df07/go-mesh-interaction/pkg/core"
	"github.com/df07/go-mesh-interaction/pkg/logger"
)

// primRef names one triangle of one shape
type primRef struct {
	shape int
	prim  int
}

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	prims       []primRef // Triangles for leaf nodes (nil for internal nodes)
}

func (n *BVHNode) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// BVH is a SpatialIndex over the individual triangles of a set of mesh
// shapes. It only prunes candidates; the nearest hit is still resolved by
// the shapes themselves.
//
// The tree stores primitive indices, not positions. After the vertex
// positions of a mesh change call Refit; after its faces change build a new
// BVH.
type BVH struct {
	Root   *BVHNode
	shapes []*MeshShape
}

// Leaf threshold: if we have this many or fewer triangles, store them in a leaf node
const leafThreshold = 8

// NewBVH constructs a BVH over every triangle of shapes
func NewBVH(shapes ...*MeshShape) *BVH {
	bvh := &BVH{shapes: shapes}

	var refs []primRef
	for si, s := range shapes {
		for f := 0; f < s.FaceCount(); f++ {
			refs = append(refs, primRef{shape: si, prim: f})
		}
	}
	if len(refs) == 0 {
		return bvh
	}

	bvh.Root = bvh.build(refs)

	stats := bvh.Stats()
	logger.Debug("bvh built",
		zap.Int("shapes", len(shapes)),
		zap.Int("triangles", stats.TotalPrims),
		zap.Int("nodes", stats.TotalNodes),
		zap.Int("leaves", stats.LeafNodes),
		zap.Int("max_depth", stats.MaxDepth))
	return bvh
}

func (bvh *BVH) primBox(r primRef) core.AABB {
	v0, v1, v2 := bvh.shapes[r.shape].FaceVertices(r.prim)
	return core.NewAABBFromPoints(v0, v1, v2)
}

// build recursively builds the BVH using fast midpoint splitting along the
// longest axis of the node bounds
func (bvh *BVH) build(refs []primRef) *BVHNode {
	boxes := make([]core.AABB, len(refs))
	bounds := core.EmptyAABB()
	for i, r := range refs {
		boxes[i] = bvh.primBox(r)
		bounds = bounds.Union(boxes[i])
	}
	return bvh.buildNode(refs, boxes, bounds)
}

func (bvh *BVH) buildNode(refs []primRef, boxes []core.AABB, bounds core.AABB) *BVHNode {
	leaf := &BVHNode{BoundingBox: bounds, prims: refs}
	if len(refs) <= leafThreshold {
		return leaf
	}

	// Try the longest axis first; triangles that all straddle its midpoint
	// fall through to the next one
	for _, axis := range splitAxes(bounds) {
		minVal, maxVal := bounds.Min.Component(axis), bounds.Max.Component(axis)
		if !(maxVal > minVal) {
			continue
		}
		mid := partition(refs, boxes, axis, (minVal+maxVal)*0.5)
		if mid == 0 || mid == len(refs) {
			continue
		}

		leftBounds, rightBounds := core.EmptyAABB(), core.EmptyAABB()
		for i := range refs {
			if i < mid {
				leftBounds = leftBounds.Union(boxes[i])
			} else {
				rightBounds = rightBounds.Union(boxes[i])
			}
		}
		return &BVHNode{
			BoundingBox: bounds,
			Left:        bvh.buildNode(refs[:mid], boxes[:mid], leftBounds),
			Right:       bvh.buildNode(refs[mid:], boxes[mid:], rightBounds),
		}
	}
	return leaf
}

// splitAxes orders the axes by decreasing extent
func splitAxes(bounds core.AABB) [3]int {
	first := bounds.LongestAxis()
	second, third := (first+1)%3, (first+2)%3
	size := bounds.Size()
	if size.Component(third) > size.Component(second) {
		second, third = third, second
	}
	return [3]int{first, second, third}
}

// partition moves the triangles whose box center lies below splitPos to the
// front, keeping refs and boxes aligned, and returns their count
func partition(refs []primRef, boxes []core.AABB, axis int, splitPos float64) int {
	mid := 0
	for i := range refs {
		if boxes[i].Center().Component(axis) < splitPos {
			refs[i], refs[mid] = refs[mid], refs[i]
			boxes[i], boxes[mid] = boxes[mid], boxes[i]
			mid++
		}
	}
	return mid
}

// Candidates implements SpatialIndex: the triangles of every leaf whose box
// the ray crosses, grouped by shape
func (bvh *BVH) Candidates(ray core.Ray) []Candidate {
	if bvh.Root == nil {
		return nil
	}

	prims := make(map[int][]int)
	bvh.collect(bvh.Root, ray, prims)
	if len(prims) == 0 {
		return nil
	}

	// Emit in shape order so results do not depend on map iteration
	out := make([]Candidate, 0, len(prims))
	for si, s := range bvh.shapes {
		if p, ok := prims[si]; ok {
			out = append(out, Candidate{Shape: s, Prims: p})
		}
	}
	return out
}

func (bvh *BVH) collect(node *BVHNode, ray core.Ray, prims map[int][]int) {
	if !node.BoundingBox.Hit(ray, ray.MinT, ray.MaxT) {
		return
	}
	if node.isLeaf() {
		for _, r := range node.prims {
			prims[r.shape] = append(prims[r.shape], r.prim)
		}
		return
	}
	if node.Left != nil {
		bvh.collect(node.Left, ray, prims)
	}
	if node.Right != nil {
		bvh.collect(node.Right, ray, prims)
	}
}

// Refit recomputes every node box from the current vertex positions
// without changing the tree topology
func (bvh *BVH) Refit() {
	if bvh.Root != nil {
		bvh.refit(bvh.Root)
	}
}

func (bvh *BVH) refit(node *BVHNode) core.AABB {
	bounds := core.EmptyAABB()
	if node.isLeaf() {
		for _, r := range node.prims {
			bounds = bounds.Union(bvh.primBox(r))
		}
	} else {
		if node.Left != nil {
			bounds = bounds.Union(bvh.refit(node.Left))
		}
		if node.Right != nil {
			bounds = bounds.Union(bvh.refit(node.Right))
		}
	}
	node.BoundingBox = bounds
	return bounds
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() core.AABB {
	if bvh.Root == nil {
		return core.EmptyAABB()
	}
	return bvh.Root.BoundingBox
}

// BVHStats contains statistics about the BVH structure
type BVHStats struct {
	TotalNodes int
	LeafNodes  int
	MaxDepth   int
	AvgDepth   float64
	TotalPrims int
}

// Stats returns statistics about the BVH structure
func (bvh *BVH) Stats() BVHStats {
	if bvh.Root == nil {
		return BVHStats{}
	}

	stats := BVHStats{}
	bvh.collectStats(bvh.Root, 0, &stats)

	// Calculate average depth after collecting all data
	if stats.LeafNodes > 0 {
		stats.AvgDepth = stats.AvgDepth / float64(stats.LeafNodes)
	}
	return stats
}

// collectStats recursively collects statistics about the BVH
func (bvh *BVH) collectStats(node *BVHNode, depth int, stats *BVHStats) {
	stats.TotalNodes++

	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	if node.isLeaf() {
		stats.LeafNodes++
		stats.TotalPrims += len(node.prims)
		stats.AvgDepth += float64(depth) // Accumulate depth for average calculation
		return
	}
	if node.Left != nil {
		bvh.collectStats(node.Left, depth+1, stats)
	}
	if node.Right != nil {
		bvh.collectStats(node.Right, depth+1, stats)
	}
}
