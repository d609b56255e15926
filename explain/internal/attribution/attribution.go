// Package attribution computes per-feature explanations for anomaly verdicts.
// Each feature's contribution is its single-feature marginal: the ensemble
// confidence of the stored vector minus the confidence with that feature
// replaced by the model's baseline value. Positive contributions raised the
// score; negative contributions lowered it.
package attribution

import (
	"context"
	"fmt"
	"sort"

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/detector"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	"github.com/chaintrace-systems/chaintrace-stack/common/severity"
)

// Engine computes explanations against one loaded model artifact. The
// artifact is read-only, so a single engine serves concurrent requests.
type Engine struct {
	model *artifact.Artifact
}

func NewEngine(model *artifact.Artifact) *Engine {
	return &Engine{model: model}
}

// ModelVersion reports the artifact version explanations are computed against.
func (e *Engine) ModelVersion() string { return e.model.Version }

// Matches reports whether a stored record can still be explained by the
// current artifact: same model version and same feature schema.
func (e *Engine) Matches(rec *models.AnomalyRecord) bool {
	return rec.ModelVersion == e.model.Version &&
		e.model.SchemaMatches(rec.DataType, rec.Features)
}

// Explain computes the ranked attribution for one record. Deterministic for
// a fixed artifact version and feature vector: ranked by |contribution|
// descending, ties broken by feature name ascending.
func (e *Engine) Explain(ctx context.Context, rec *models.AnomalyRecord) (*models.Explanation, error) {
	dets, err := detector.ForDataType(e.model, rec.DataType)
	if err != nil {
		return nil, fmt.Errorf("build detectors: %w", err)
	}
	baseline, err := e.model.BaselineVector(rec.DataType)
	if err != nil {
		return nil, fmt.Errorf("baseline vector: %w", err)
	}

	full, err := e.confidence(ctx, dets, rec.Features)
	if err != nil {
		return nil, err
	}

	contributions := make([]models.FeatureContribution, 0, rec.Features.Len())
	for i, name := range rec.Features.Names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		perturbed := rec.Features.Clone()
		base, ok := baseline.Get(name)
		if !ok {
			return nil, fmt.Errorf("no baseline for feature %q", name)
		}
		perturbed.Values[i] = base

		without, err := e.confidence(ctx, dets, perturbed)
		if err != nil {
			return nil, err
		}

		c := full - without
		direction := "raises"
		if c < 0 {
			direction = "lowers"
		}
		contributions = append(contributions, models.FeatureContribution{
			Feature:      name,
			Contribution: c,
			Direction:    direction,
		})
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		ai, aj := abs(contributions[i].Contribution), abs(contributions[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return contributions[i].Feature < contributions[j].Feature
	})

	return &models.Explanation{
		AnomalyID:     rec.ID,
		ModelVersion:  e.model.Version,
		Contributions: contributions,
		Summary:       summarize(rec, contributions),
	}, nil
}

// confidence scores a vector the same way the detection ensemble does:
// max normalized score across detectors. Detectors run sequentially here;
// explanations are latency-tolerant and the vectors are tiny.
func (e *Engine) confidence(ctx context.Context, dets []detector.Detector, vec models.FeatureVector) (float64, error) {
	best := 0.0
	for _, d := range dets {
		score, err := d.Score(ctx, vec)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			// A detector that cannot score the perturbed vector is skipped,
			// matching the ensemble's partial-result behavior.
			continue
		}
		if n := severity.Normalize(score.Raw); n > best {
			best = n
		}
	}
	return best, nil
}

func summarize(rec *models.AnomalyRecord, contributions []models.FeatureContribution) string {
	if len(contributions) == 0 {
		return fmt.Sprintf("no feature attribution available for %s record", rec.DataType)
	}
	top := contributions[0]
	verb := "raising"
	if top.Direction == "lowers" {
		verb = "lowering"
	}
	return fmt.Sprintf("%s verdict (%s) driven primarily by %s, %s the score by %.3f",
		string(rec.Verdict.Severity), rec.DataType, top.Feature, verb, abs(top.Contribution))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
