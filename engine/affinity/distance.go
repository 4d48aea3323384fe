package affinity

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DistanceFunc returns the distance between two equally sized vectors.
type DistanceFunc func(a, b []float64) float64

var distanceFuncs = map[Metric]DistanceFunc{
	MetricCosine:    cosineDistance,
	MetricEuclidean: euclideanDistance,
	MetricManhattan: manhattanDistance,
}

// cosineDistance is 1 - cos(a, b). A zero vector is treated as orthogonal to everything.
func cosineDistance(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(na*nb)
	if d < 0 {
		return 0
	}
	return d
}

func euclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func manhattanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// toFloat64 widens embedding vectors and checks they share one dimension.
func toFloat64(vectors [][]float32) ([][]float64, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("embedding 0 is empty")
	}
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dim)
		}
		row := make([]float64, dim)
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out, nil
}

// pairwise builds the full symmetric distance matrix.
func pairwise(points [][]float64, fn DistanceFunc) [][]float64 {
	n := len(points)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := fn(points[i], points[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}
