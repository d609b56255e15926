package detector

import (
	"context"
	"math"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// OneClassSVM scores by the RBF-kernel decision function against the
// artifact's support vectors: f(x) = Σ αᵢ·K(svᵢ, x) − ρ. Negative values lie
// outside the learned boundary.
type OneClassSVM struct {
	params *artifact.SVMParams
}

func (s *OneClassSVM) Name() string              { return "ocsvm" }
func (s *OneClassSVM) Kind() models.DetectorKind { return models.KindBoundary }

func (s *OneClassSVM) Score(ctx context.Context, vec models.FeatureVector) (models.DetectorScore, error) {
	if err := ctx.Err(); err != nil {
		return models.DetectorScore{}, err
	}
	if len(s.params.SupportVectors) == 0 {
		return models.DetectorScore{}, errNoModel("ocsvm")
	}
	if err := checkDim(vec, len(s.params.SupportVectors[0])); err != nil {
		return models.DetectorScore{}, err
	}

	decision := -s.params.Rho
	for i, sv := range s.params.SupportVectors {
		decision += s.params.Alphas[i] * rbf(sv, vec.Values, s.params.Gamma)
	}

	return models.DetectorScore{
		Detector: s.Name(),
		Kind:     s.Kind(),
		// Negated so magnitude grows with anomalousness, matching the
		// ensemble's orientation convention.
		Raw: -decision,
	}, nil
}

func rbf(a, b []float64, gamma float64) float64 {
	var sq float64
	for i := range a {
		d := a[i] - b[i]
		sq += d * d
	}
	return math.Exp(-gamma * sq)
}
