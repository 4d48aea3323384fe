package affinity

import (
	"fmt"
	"math"
)

// Merge is one step of the agglomerative merge tree.
// Node ids below the leaf count are notes; merge s creates node leaves+s.
type Merge struct {
	Left     int
	Right    int
	Distance float64
	Size     int
}

// Dendrogram is the full merge tree over a set of points.
type Dendrogram struct {
	Leaves int
	Merges []Merge
}

// BuildDendrogram computes the complete merge tree with Lance-Williams updates.
// The closest pair is the first strict minimum in (i, j) scan order, which makes
// the tree a pure function of the input vectors.
//
// Each row caches its nearest active neighbour to the right, so a step rescans
// only the rows whose neighbour was merged. Memory is the full n*n distance
// matrix; boards of a few thousand notes are the practical ceiling.
func BuildDendrogram(vectors [][]float32, linkage Linkage, metric Metric) (*Dendrogram, error) {
	fn, ok := distanceFuncs[normalizeMetric(metric)]
	if !ok {
		return nil, fmt.Errorf("unknown distance metric %q", metric)
	}
	update, ok := linkageUpdates[linkage]
	if !ok {
		return nil, fmt.Errorf("unknown linkage %q", linkage)
	}
	points, err := toFloat64(vectors)
	if err != nil {
		return nil, err
	}
	n := len(points)
	tree := &Dendrogram{Leaves: n, Merges: make([]Merge, 0, max(n-1, 0))}
	if n < 2 {
		return tree, nil
	}
	dist := pairwise(points, fn)
	active := make([]bool, n)
	size := make([]int, n)
	node := make([]int, n)
	nn := make([]int, n)
	nnd := make([]float64, n)
	nearest := func(i int) {
		nn[i], nnd[i] = -1, math.Inf(1)
		for j := i + 1; j < n; j++ {
			if active[j] && dist[i][j] < nnd[i] {
				nn[i], nnd[i] = j, dist[i][j]
			}
		}
	}
	for i := range n {
		active[i] = true
		size[i] = 1
		node[i] = i
	}
	for i := range n {
		nearest(i)
	}
	for step := 0; step < n-1; step++ {
		bi := -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if active[i] && nn[i] >= 0 && nnd[i] < best {
				bi, best = i, nnd[i]
			}
		}
		if bi < 0 {
			return nil, fmt.Errorf("no mergeable pair at step %d (non-finite distances)", step)
		}
		bj := nn[bi]
		tree.Merges = append(tree.Merges, Merge{
			Left:     node[bi],
			Right:    node[bj],
			Distance: best,
			Size:     size[bi] + size[bj],
		})
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			d := update(dist[k][bi], dist[k][bj], best, size[bi], size[bj], size[k])
			dist[k][bi] = d
			dist[bi][k] = d
		}
		size[bi] += size[bj]
		node[bi] = n + step
		active[bj] = false

		nearest(bi)
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k > bj {
				continue
			}
			switch {
			case nn[k] == bi || nn[k] == bj:
				nearest(k)
			case k < bi:
				if d := dist[k][bi]; d < nnd[k] || (d == nnd[k] && bi < nn[k]) {
					nn[k], nnd[k] = bi, d
				}
			}
		}
	}
	return tree, nil
}

// linkageUpdate returns d(k, i∪j) from d(k,i), d(k,j), d(i,j) and the cluster sizes.
type linkageUpdate func(dki, dkj, dij float64, ni, nj, nk int) float64

var linkageUpdates = map[Linkage]linkageUpdate{
	LinkageSingle: func(dki, dkj, _ float64, _, _, _ int) float64 {
		return math.Min(dki, dkj)
	},
	LinkageComplete: func(dki, dkj, _ float64, _, _, _ int) float64 {
		return math.Max(dki, dkj)
	},
	LinkageAverage: func(dki, dkj, _ float64, ni, nj, _ int) float64 {
		return (float64(ni)*dki + float64(nj)*dkj) / float64(ni+nj)
	},
	LinkageWard: func(dki, dkj, dij float64, ni, nj, nk int) float64 {
		fi, fj, fk := float64(ni), float64(nj), float64(nk)
		v := ((fi+fk)*dki*dki + (fj+fk)*dkj*dkj - fk*dij*dij) / (fi + fj + fk)
		if v < 0 {
			return 0
		}
		return math.Sqrt(v)
	},
}

// CutByCount applies the first Leaves-k merges and labels the result.
func (d *Dendrogram) CutByCount(k int) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count must be positive, got %d", k)
	}
	if k > d.Leaves {
		return nil, fmt.Errorf("n_samples=%d should be >= n_clusters=%d", d.Leaves, k)
	}
	return d.labels(d.Leaves - k), nil
}

// CutByDistance applies every merge below threshold. Clusters whose linkage
// distance is at or above the threshold stay apart.
func (d *Dendrogram) CutByDistance(threshold float64) []int {
	applied := 0
	for _, m := range d.Merges {
		if m.Distance >= threshold {
			break
		}
		applied++
	}
	return d.labels(applied)
}

// labels applies the first count merges and returns one dense id per leaf,
// numbered by each cluster's lowest leaf index.
func (d *Dendrogram) labels(count int) []int {
	parent := make([]int, d.Leaves)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	rep := make([]int, d.Leaves+len(d.Merges))
	for i := 0; i < d.Leaves; i++ {
		rep[i] = i
	}
	for s := 0; s < count && s < len(d.Merges); s++ {
		m := d.Merges[s]
		a, b := find(rep[m.Left]), find(rep[m.Right])
		if a > b {
			a, b = b, a
		}
		parent[b] = a
		rep[d.Leaves+s] = a
	}
	ids := make(map[int]int)
	out := make([]int, d.Leaves)
	for i := 0; i < d.Leaves; i++ {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		out[i] = id
	}
	return out
}
