// Package detector implements the ensemble members: an isolation forest, a
// one-class SVM, and a density detector. All score against parameters from a
// versioned model artifact; no training happens in the scoring path.
package detector

import (
	"context"
	"fmt"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// Detector scores one feature vector. Raw score orientation is
// detector-specific; the severity classifier normalizes on magnitude.
type Detector interface {
	Name() string
	Kind() models.DetectorKind
	Score(ctx context.Context, vec models.FeatureVector) (models.DetectorScore, error)
}

// ForDataType builds the enabled detector set for a data type from the
// artifact. Detectors without parameters in the artifact are simply absent.
func ForDataType(a *artifact.Artifact, dt models.DataType) ([]Detector, error) {
	tm, err := a.ModelFor(dt)
	if err != nil {
		return nil, err
	}

	var out []Detector
	if tm.Forest != nil {
		out = append(out, &IsolationForest{params: tm.Forest})
	}
	if tm.SVM != nil {
		out = append(out, &OneClassSVM{params: tm.SVM})
	}
	if tm.Density != nil {
		out = append(out, &DensityDetector{params: tm.Density})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("artifact %s has no detectors for data type %q", a.Version, dt)
	}
	return out, nil
}

func errNoModel(name string) error {
	return fmt.Errorf("%s: artifact carries no usable parameters", name)
}

func checkDim(vec models.FeatureVector, want int) error {
	if vec.Len() != want {
		return fmt.Errorf("feature dimension mismatch: got %d, model expects %d", vec.Len(), want)
	}
	return nil
}
