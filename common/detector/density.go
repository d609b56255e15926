package detector

import (
	"context"
	"math"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// DensityDetector scores by eps-neighborhood density against the artifact's
// reference points, DBSCAN style: a point with fewer than MinPoints neighbors
// within Eps sits in a sparse region.
type DensityDetector struct {
	params *artifact.DensityParams
}

func (d *DensityDetector) Name() string              { return "density" }
func (d *DensityDetector) Kind() models.DetectorKind { return models.KindDensity }

// Score returns (minPts − neighbors) / minPts: positive when the
// neighborhood is under-populated, zero or negative for core points.
func (d *DensityDetector) Score(ctx context.Context, vec models.FeatureVector) (models.DetectorScore, error) {
	if err := ctx.Err(); err != nil {
		return models.DetectorScore{}, err
	}
	if len(d.params.Points) == 0 || d.params.MinPoints <= 0 || d.params.Eps <= 0 {
		return models.DetectorScore{}, errNoModel("density")
	}
	if err := checkDim(vec, len(d.params.Points[0])); err != nil {
		return models.DetectorScore{}, err
	}

	neighbors := 0
	for _, p := range d.params.Points {
		if euclidean(p, vec.Values) <= d.params.Eps {
			neighbors++
		}
	}
	if neighbors > d.params.MinPoints {
		neighbors = d.params.MinPoints
	}

	raw := float64(d.params.MinPoints-neighbors) / float64(d.params.MinPoints)

	return models.DetectorScore{
		Detector: d.Name(),
		Kind:     d.Kind(),
		Raw:      raw,
	}, nil
}

func euclidean(a, b []float64) float64 {
	var sq float64
	for i := range a {
		diff := a[i] - b[i]
		sq += diff * diff
	}
	return math.Sqrt(sq)
}
