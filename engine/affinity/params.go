package affinity

import (
	"fmt"
	"strings"
)

// Mode selects how the merge tree is cut.
type Mode string

const (
	// ModeClusters cuts the tree at a fixed number of groups.
	ModeClusters Mode = "clusters"
	// ModeDistance cuts the tree at a merge-distance threshold.
	ModeDistance Mode = "distance"
)

// Linkage is the rule for the distance between two clusters.
type Linkage string

const (
	LinkageAverage  Linkage = "average"
	LinkageComplete Linkage = "complete"
	LinkageSingle   Linkage = "single"
	LinkageWard     Linkage = "ward"
)

// Metric is the pairwise vector distance.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
	MetricL2        Metric = "l2"
	MetricManhattan Metric = "manhattan"
	MetricL1        Metric = "l1"
)

// Params configures a grouping run.
// Only one of ClusterCount and DistanceThreshold is honoured, depending on Mode.
type Params struct {
	Mode              Mode
	ClusterCount      int
	DistanceThreshold float64
	Linkage           Linkage
	Metric            Metric
}

// DefaultParams mirrors the defaults shipped in the configuration.
func DefaultParams() Params {
	return Params{
		Mode:              ModeClusters,
		ClusterCount:      5,
		DistanceThreshold: 1.0,
		Linkage:           LinkageAverage,
		Metric:            MetricCosine,
	}
}

// resolvedParams is Params after mode exclusivity has been applied.
// A nil field is "unset".
type resolvedParams struct {
	mode      Mode
	count     *int
	threshold *float64
	linkage   Linkage
	metric    Metric
}

// resolve validates p and unsets the size parameter the mode does not use.
func (p Params) resolve() (*resolvedParams, error) {
	r := &resolvedParams{
		mode:    Mode(strings.ToLower(strings.TrimSpace(string(p.Mode)))),
		linkage: Linkage(strings.ToLower(strings.TrimSpace(string(p.Linkage)))),
		metric:  normalizeMetric(p.Metric),
	}
	switch r.mode {
	case ModeClusters:
		if p.ClusterCount < 1 {
			return nil, NewConfigError("resolve params", fmt.Errorf("cluster count must be positive, got %d", p.ClusterCount))
		}
		count := p.ClusterCount
		r.count = &count
	case ModeDistance:
		if p.DistanceThreshold < 0 {
			return nil, NewConfigError(
				"resolve params",
				fmt.Errorf("distance threshold must be non-negative, got %v", p.DistanceThreshold),
			)
		}
		threshold := p.DistanceThreshold
		r.threshold = &threshold
	default:
		return nil, NewConfigError("resolve params", fmt.Errorf("unknown agglomerative mode %q", p.Mode))
	}
	switch r.linkage {
	case LinkageAverage, LinkageComplete, LinkageSingle, LinkageWard:
	default:
		return nil, NewConfigError("resolve params", fmt.Errorf("unknown linkage %q", p.Linkage))
	}
	if _, ok := distanceFuncs[r.metric]; !ok {
		return nil, NewConfigError("resolve params", fmt.Errorf("unknown distance metric %q", p.Metric))
	}
	if r.linkage == LinkageWard && r.metric != MetricEuclidean {
		return nil, NewConfigError(
			"resolve params",
			fmt.Errorf("ward linkage requires the euclidean metric, got %q", p.Metric),
		)
	}
	return r, nil
}

func normalizeMetric(m Metric) Metric {
	switch Metric(strings.ToLower(strings.TrimSpace(string(m)))) {
	case MetricEuclidean, MetricL2:
		return MetricEuclidean
	case MetricManhattan, MetricL1:
		return MetricManhattan
	case MetricCosine:
		return MetricCosine
	default:
		return m
	}
}
