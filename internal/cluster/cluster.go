// Package cluster assigns density-based cluster labels to the 2-D signal
// coordinates of a single tick using DBSCAN.
package cluster

import "sort"

// Noise is the label for points not density-reachable from any core
// point. Cluster ids start at 1.
const Noise = 0

// Default clustering parameters for the [0,100) square signal domain.
const (
	DefaultEps    = 30.0
	DefaultMinPts = 2
)

// Point is a signal coordinate. Index i in the input slice corresponds to
// index i in the label slice Assign returns.
type Point struct {
	X, Y float64
}

// Params configures DBSCAN.
type Params struct {
	// Eps is the neighborhood radius. Two points within Euclidean
	// distance Eps of each other are neighbors.
	Eps float64

	// MinPts is the minimum neighborhood size, counting the point
	// itself, for a point to be a core point.
	MinPts int
}

// DefaultParams returns parameters tuned for the simulator's domain.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinPts: DefaultMinPts}
}

// Internal label states. Exported labels are only Noise and 1..k.
const (
	unvisited = 0
	noise     = -1
)

// Assign runs DBSCAN over the points and returns one label per input
// index: Noise for unclustered points, 1..k for cluster membership.
//
// The output is deterministic for a fixed input order: points are
// scanned in input index order, each cluster expansion runs to
// completion before the next cluster opens, and a labeled point is never
// reassigned. A border point reachable from two clusters therefore
// always joins the cluster whose first core point appears earlier in the
// input. Neighbor lists are sorted by index so the expansion order is
// itself reproducible.
func Assign(points []Point, params Params) []int {
	labels := make([]int, len(points))
	if len(points) == 0 {
		return labels
	}

	index := newSpatialIndex(params.Eps)
	index.build(points)

	clusterID := 0
	state := make([]int, len(points))

	for i := range points {
		if state[i] != unvisited {
			continue
		}

		neighbors := index.regionQuery(points, i, params.Eps)
		if len(neighbors) < params.MinPts {
			state[i] = noise // may be relabeled as a border point later
			continue
		}

		clusterID++
		expandCluster(points, index, state, neighbors, clusterID, params)
	}

	for i, s := range state {
		if s == noise {
			labels[i] = Noise
		} else {
			labels[i] = s
		}
	}
	return labels
}

// expandCluster grows a cluster from a core point's neighborhood by
// breadth-first density-reachability. Points provisionally marked noise
// become border points of the cluster but are never expanded themselves.
func expandCluster(points []Point, index *spatialIndex, state []int, seeds []int, clusterID int, params Params) {
	for j := 0; j < len(seeds); j++ {
		idx := seeds[j]

		if state[idx] == noise {
			state[idx] = clusterID
			continue
		}
		if state[idx] != unvisited {
			continue
		}

		state[idx] = clusterID
		neighbors := index.regionQuery(points, idx, params.Eps)
		if len(neighbors) >= params.MinPts {
			seeds = append(seeds, neighbors...)
		}
	}
}

// spatialIndex buckets points into a regular grid with cell size eps so
// a neighborhood query only inspects the 3x3 surrounding cells.
type spatialIndex struct {
	cellSize float64
	grid     map[int64][]int
}

func newSpatialIndex(cellSize float64) *spatialIndex {
	return &spatialIndex{
		cellSize: cellSize,
		grid:     make(map[int64][]int),
	}
}

func (si *spatialIndex) build(points []Point) {
	for i, p := range points {
		id := cellID(cellCoord(p.X, si.cellSize), cellCoord(p.Y, si.cellSize))
		si.grid[id] = append(si.grid[id], i)
	}
}

// regionQuery returns the indices of all points within eps of points[i],
// including i itself, sorted ascending.
func (si *spatialIndex) regionQuery(points []Point, i int, eps float64) []int {
	p := points[i]
	eps2 := eps * eps

	cx := cellCoord(p.X, si.cellSize)
	cy := cellCoord(p.Y, si.cellSize)

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, candidate := range si.grid[cellID(cx+dx, cy+dy)] {
				q := points[candidate]
				ddx := q.X - p.X
				ddy := q.Y - p.Y
				if ddx*ddx+ddy*ddy <= eps2 {
					neighbors = append(neighbors, candidate)
				}
			}
		}
	}

	sort.Ints(neighbors)
	return neighbors
}

func cellCoord(v, cellSize float64) int64 {
	c := int64(v / cellSize)
	if v < 0 && v != float64(c)*cellSize {
		c--
	}
	return c
}

// cellID maps a signed cell coordinate pair to a single key using zigzag
// encoding followed by Szudzik's pairing function.
func cellID(cx, cy int64) int64 {
	var a, b int64
	if cx >= 0 {
		a = 2 * cx
	} else {
		a = -2*cx - 1
	}
	if cy >= 0 {
		b = 2 * cy
	} else {
		b = -2*cy - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}
