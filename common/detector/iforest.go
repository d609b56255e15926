package detector

import (
	"context"
	"fmt"
	"math"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// IsolationForest scores by average path length over the artifact's trees.
// Points that isolate quickly (short paths) are anomalous.
type IsolationForest struct {
	params *artifact.ForestParams
}

func (f *IsolationForest) Name() string              { return "isolation_forest" }
func (f *IsolationForest) Kind() models.DetectorKind { return models.KindDistance }

// Score returns a signed raw score centered on zero: positive means more
// anomalous than the expected path length, negative means deeper than
// expected (inlier). Derived from the standard 2^(-E[h]/c(n)) score in [0,1],
// recentered and stretched so magnitude carries signal for normalization.
func (f *IsolationForest) Score(ctx context.Context, vec models.FeatureVector) (models.DetectorScore, error) {
	if err := ctx.Err(); err != nil {
		return models.DetectorScore{}, err
	}
	if len(f.params.Trees) == 0 {
		return models.DetectorScore{}, errNoModel("isolation_forest")
	}
	if maxIdx := maxFeatureIndex(f.params.Trees); vec.Len() <= maxIdx {
		return models.DetectorScore{}, fmt.Errorf("feature dimension mismatch: got %d, trees reference index %d", vec.Len(), maxIdx)
	}

	var total float64
	for _, t := range f.params.Trees {
		total += pathLength(t.Root, vec.Values, 0)
	}
	avg := total / float64(len(f.params.Trees))

	c := avgPathLength(f.params.SampleSize)
	if c <= 0 {
		return models.DetectorScore{}, errNoModel("isolation_forest")
	}
	s := math.Pow(2, -avg/c) // [0,1], 0.5 is the indifference point

	return models.DetectorScore{
		Detector: f.Name(),
		Kind:     f.Kind(),
		Raw:      (s - 0.5) * 10,
	}, nil
}

func pathLength(n *artifact.Node, x []float64, depth int) float64 {
	if n == nil {
		return float64(depth)
	}
	if n.Leaf {
		if n.Size <= 1 {
			return float64(depth)
		}
		return float64(depth) + avgPathLength(n.Size)
	}
	if x[n.Feature] < n.Split {
		return pathLength(n.Left, x, depth+1)
	}
	return pathLength(n.Right, x, depth+1)
}

// avgPathLength is c(n): the average path length of an unsuccessful BST
// search, used to normalize isolation depth.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}

func maxFeatureIndex(trees []artifact.Tree) int {
	max := 0
	var walk func(*artifact.Node)
	walk = func(n *artifact.Node) {
		if n == nil || n.Leaf {
			return
		}
		if n.Feature > max {
			max = n.Feature
		}
		walk(n.Left)
		walk(n.Right)
	}
	for _, t := range trees {
		walk(t.Root)
	}
	return max
}
