package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
)

// PredictorPool fans one feature vector out to every predictor concurrently
// and waits for all of them. Each call gets its own deadline; a slow model
// surfaces as ErrModelTimeout in its slot instead of stalling the cycle.
type PredictorPool struct {
	predictors []domsvc.Predictor
}

func NewPredictorPool(predictors []domsvc.Predictor) *PredictorPool {
	return &PredictorPool{predictors: predictors}
}

// Predictors returns the pool members in registration order.
func (p *PredictorPool) Predictors() []domsvc.Predictor { return p.predictors }

// Deterministic returns a pool restricted to replay-safe members.
func (p *PredictorPool) Deterministic() *PredictorPool {
	kept := make([]domsvc.Predictor, 0, len(p.predictors))
	for _, pr := range p.predictors {
		if pr.Deterministic() {
			kept = append(kept, pr)
		}
	}
	return NewPredictorPool(kept)
}

// Collect runs every predictor and returns one result per model, in
// registration order regardless of completion order, so downstream
// aggregation iterates deterministically.
func (p *PredictorPool) Collect(ctx context.Context, f *models.FeatureVector, regime models.RegimeLabel) []*models.PredictorResult {
	results := make([]*models.PredictorResult, len(p.predictors))
	var wg sync.WaitGroup

	for i, pr := range p.predictors {
		wg.Add(1)
		go func(i int, pr domsvc.Predictor) {
			defer wg.Done()
			results[i] = p.runOne(ctx, pr, f, regime)
		}(i, pr)
	}
	wg.Wait()
	return results
}

func (p *PredictorPool) runOne(ctx context.Context, pr domsvc.Predictor, f *models.FeatureVector, regime models.RegimeLabel) *models.PredictorResult {
	res := &models.PredictorResult{Model: pr.Name(), OutOfRegime: !validatedFor(pr, regime)}

	if pr.SchemaID() != f.SchemaID {
		res.Err = fmt.Errorf("%w: model %s wants %s, builder emits %s",
			models.ErrSchemaMismatch, pr.Name(), pr.SchemaID(), f.SchemaID)
		return res
	}

	callCtx, cancel := context.WithTimeout(ctx, pr.Timeout())
	defer cancel()

	type answer struct {
		pred *models.Prediction
		err  error
	}
	ch := make(chan answer, 1)
	start := time.Now()
	go func() {
		pred, err := pr.Predict(callCtx, f, regime)
		ch <- answer{pred, err}
	}()

	select {
	case <-callCtx.Done():
		res.Err = fmt.Errorf("%w: %s after %s", models.ErrModelTimeout, pr.Name(), pr.Timeout())
	case a := <-ch:
		if a.err != nil {
			res.Err = a.err
			break
		}
		if a.pred == nil || !a.pred.Direction.Valid() {
			res.Err = fmt.Errorf("%w: %s returned invalid prediction", models.ErrModelFailure, pr.Name())
			break
		}
		a.pred.Latency = time.Since(start)
		if a.pred.Confidence < 0 {
			a.pred.Confidence = 0
		}
		if a.pred.Confidence > 1 {
			a.pred.Confidence = 1
		}
		res.Prediction = a.pred
	}
	return res
}

// validatedFor reports whether the model's declared regime list covers the
// regime this cycle runs under. No list means valid everywhere.
func validatedFor(pr domsvc.Predictor, regime models.RegimeLabel) bool {
	regimes := pr.Regimes()
	if len(regimes) == 0 {
		return true
	}
	for _, r := range regimes {
		if r == regime {
			return true
		}
	}
	return false
}
