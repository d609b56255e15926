// Package ensemble fans one feature vector out to all enabled detectors
// concurrently and collects their scores. Failed or timed-out detectors are
// recorded unavailable rather than zero-filled; the ensemble only errors when
// no detector produced a score at all.
package ensemble

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chaintrace-systems/chaintrace-stack/common/detector"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

// ErrEnsembleUnavailable is returned when every detector failed or timed out.
// Callers absorb it: the record is still classified, as degraded info/0.
var ErrEnsembleUnavailable = errors.New("ensemble unavailable: no detector produced a score")

// Engine runs detector sets with bounded per-detector and overall deadlines.
type Engine struct {
	detectorTimeout time.Duration
	overallTimeout  time.Duration
}

// NewEngine constructs an engine. Zero timeouts disable the respective bound.
func NewEngine(detectorTimeout, overallTimeout time.Duration) *Engine {
	return &Engine{detectorTimeout: detectorTimeout, overallTimeout: overallTimeout}
}

// Score runs every detector concurrently and returns one DetectorScore per
// detector, in the detectors' given order. The error is non-nil only when no
// detector succeeded; partial results are returned as-is.
func (e *Engine) Score(ctx context.Context, detectors []detector.Detector, vec models.FeatureVector) ([]models.DetectorScore, error) {
	if len(detectors) == 0 {
		return nil, ErrEnsembleUnavailable
	}

	if e.overallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.overallTimeout)
		defer cancel()
	}

	scores := make([]models.DetectorScore, len(detectors))
	var wg sync.WaitGroup

	for i, d := range detectors {
		wg.Add(1)
		go func(i int, d detector.Detector) {
			defer wg.Done()

			dctx := ctx
			if e.detectorTimeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(ctx, e.detectorTimeout)
				defer cancel()
			}

			score, err := d.Score(dctx, vec.Clone())
			if err != nil {
				scores[i] = models.DetectorScore{
					Detector:    d.Name(),
					Kind:        d.Kind(),
					Unavailable: true,
					Err:         err.Error(),
				}
				return
			}
			scores[i] = score
		}(i, d)
	}
	wg.Wait()

	for _, s := range scores {
		if !s.Unavailable {
			return scores, nil
		}
	}
	return scores, ErrEnsembleUnavailable
}
