package affinity

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line places points at 0, 1, 3 and 7 on a single axis.
var line = [][]float32{{0}, {1}, {3}, {7}}

func mergeDistances(d *Dendrogram) []float64 {
	out := make([]float64, len(d.Merges))
	for i, m := range d.Merges {
		out[i] = m.Distance
	}
	return out
}

func TestBuildDendrogram(t *testing.T) {
	cases := []struct {
		linkage   Linkage
		distances []float64
	}{
		{LinkageSingle, []float64{1, 2, 4}},
		{LinkageComplete, []float64{1, 3, 7}},
		{LinkageAverage, []float64{1, 2.5, 17.0 / 3.0}},
		{LinkageWard, []float64{1, math.Sqrt(25.0 / 3.0), math.Sqrt(1.5) * (7 - 4.0/3.0)}},
	}
	for _, tc := range cases {
		t.Run("Should compute "+string(tc.linkage)+" merge distances", func(t *testing.T) {
			tree, err := BuildDendrogram(line, tc.linkage, MetricEuclidean)
			require.NoError(t, err)

			require.Len(t, tree.Merges, 3)
			assert.InDeltaSlice(t, tc.distances, mergeDistances(tree), 1e-9)
			assert.Equal(t, 4, tree.Merges[2].Size)
		})
	}

	t.Run("Should record node ids for merged clusters", func(t *testing.T) {
		tree, err := BuildDendrogram(line, LinkageSingle, MetricEuclidean)
		require.NoError(t, err)

		assert.Equal(t, Merge{Left: 0, Right: 1, Distance: 1, Size: 2}, tree.Merges[0])
		assert.Equal(t, Merge{Left: 4, Right: 2, Distance: 2, Size: 3}, tree.Merges[1])
		assert.Equal(t, Merge{Left: 5, Right: 3, Distance: 4, Size: 4}, tree.Merges[2])
	})

	t.Run("Should break ties by scan order", func(t *testing.T) {
		tree, err := BuildDendrogram([][]float32{{0}, {1}, {2}}, LinkageSingle, MetricEuclidean)
		require.NoError(t, err)

		assert.Equal(t, 0, tree.Merges[0].Left)
		assert.Equal(t, 1, tree.Merges[0].Right)
	})

	t.Run("Should return an empty tree for a single point", func(t *testing.T) {
		tree, err := BuildDendrogram([][]float32{{1, 2}}, LinkageAverage, MetricCosine)
		require.NoError(t, err)

		assert.Equal(t, 1, tree.Leaves)
		assert.Empty(t, tree.Merges)
	})

	t.Run("Should reject empty vectors", func(t *testing.T) {
		_, err := BuildDendrogram([][]float32{{}, {}}, LinkageAverage, MetricCosine)
		assert.Error(t, err)
	})

	t.Run("Should reject unknown linkage", func(t *testing.T) {
		_, err := BuildDendrogram(line, "median", MetricEuclidean)
		assert.Error(t, err)
	})
}

// scanDendrogram merges by rescanning every active pair on each step.
func scanDendrogram(t *testing.T, vectors [][]float32, linkage Linkage, metric Metric) []Merge {
	t.Helper()
	points, err := toFloat64(vectors)
	require.NoError(t, err)
	n := len(points)
	dist := pairwise(points, distanceFuncs[normalizeMetric(metric)])
	update := linkageUpdates[linkage]
	active := make([]bool, n)
	size := make([]int, n)
	node := make([]int, n)
	for i := range n {
		active[i], size[i], node[i] = true, 1, i
	}
	merges := make([]Merge, 0, n-1)
	for step := 0; step < n-1; step++ {
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if active[i] && active[j] && dist[i][j] < best {
					bi, bj, best = i, j, dist[i][j]
				}
			}
		}
		merges = append(merges, Merge{Left: node[bi], Right: node[bj], Distance: best, Size: size[bi] + size[bj]})
		for k := 0; k < n; k++ {
			if active[k] && k != bi && k != bj {
				d := update(dist[k][bi], dist[k][bj], best, size[bi], size[bj], size[k])
				dist[k][bi], dist[bi][k] = d, d
			}
		}
		size[bi] += size[bj]
		node[bi] = n + step
		active[bj] = false
	}
	return merges
}

func TestBuildDendrogram_NearestNeighbourCache(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	// Small integer grids produce many equal distances, which exercises tie order.
	board := make([][]float32, 40)
	for i := range board {
		board[i] = []float32{float32(rng.IntN(4)), float32(rng.IntN(4)), float32(rng.IntN(3))}
	}
	for _, linkage := range []Linkage{LinkageSingle, LinkageComplete, LinkageAverage, LinkageWard} {
		for _, metric := range []Metric{MetricEuclidean, MetricManhattan} {
			if linkage == LinkageWard && metric != MetricEuclidean {
				continue
			}
			t.Run("Should match a full pair scan for "+string(linkage)+"/"+string(metric), func(t *testing.T) {
				tree, err := BuildDendrogram(board, linkage, metric)
				require.NoError(t, err)
				assert.Equal(t, scanDendrogram(t, board, linkage, metric), tree.Merges)
			})
		}
	}
}

func TestDendrogram_Cut(t *testing.T) {
	tree, err := BuildDendrogram(line, LinkageSingle, MetricEuclidean)
	require.NoError(t, err)

	t.Run("Should cut by count", func(t *testing.T) {
		cases := map[int][]int{
			1: {0, 0, 0, 0},
			2: {0, 0, 0, 1},
			3: {0, 0, 1, 2},
			4: {0, 1, 2, 3},
		}
		for k, want := range cases {
			got, err := tree.CutByCount(k)
			require.NoError(t, err)
			assert.Equal(t, want, got, "k=%d", k)
		}
	})

	t.Run("Should reject counts above the number of points", func(t *testing.T) {
		_, err := tree.CutByCount(5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "n_samples=4 should be >= n_clusters=5")
	})

	t.Run("Should reject non positive counts", func(t *testing.T) {
		_, err := tree.CutByCount(0)
		assert.Error(t, err)
	})

	t.Run("Should cut strictly below the threshold", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3}, tree.CutByDistance(0))
		assert.Equal(t, []int{0, 1, 2, 3}, tree.CutByDistance(1))
		assert.Equal(t, []int{0, 0, 1, 2}, tree.CutByDistance(1.5))
		assert.Equal(t, []int{0, 0, 0, 1}, tree.CutByDistance(4))
		assert.Equal(t, []int{0, 0, 0, 0}, tree.CutByDistance(4.01))
	})

	t.Run("Should number clusters by first appearance", func(t *testing.T) {
		shuffled, err := BuildDendrogram([][]float32{{7}, {0}, {3}, {1}}, LinkageSingle, MetricEuclidean)
		require.NoError(t, err)

		got, err := shuffled.CutByCount(2)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 1, 1}, got)
	})
}

func TestDistanceFuncs(t *testing.T) {
	t.Run("Should compute cosine distance", func(t *testing.T) {
		assert.InDelta(t, 0, cosineDistance([]float64{1, 0}, []float64{2, 0}), 1e-12)
		assert.InDelta(t, 1, cosineDistance([]float64{1, 0}, []float64{0, 3}), 1e-12)
		assert.InDelta(t, 2, cosineDistance([]float64{1, 0}, []float64{-1, 0}), 1e-12)
	})

	t.Run("Should treat zero vectors as orthogonal", func(t *testing.T) {
		assert.Equal(t, 1.0, cosineDistance([]float64{0, 0}, []float64{1, 1}))
	})

	t.Run("Should compute euclidean and manhattan distance", func(t *testing.T) {
		assert.InDelta(t, 5, euclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-12)
		assert.InDelta(t, 7, manhattanDistance([]float64{0, 0}, []float64{3, 4}), 1e-12)
	})

	t.Run("Should normalize metric aliases", func(t *testing.T) {
		assert.Equal(t, MetricEuclidean, normalizeMetric(MetricL2))
		assert.Equal(t, MetricManhattan, normalizeMetric(MetricL1))
		assert.Equal(t, MetricCosine, normalizeMetric(" Cosine "))
	})
}
