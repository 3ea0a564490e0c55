package usecase

import (
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
)

// EnsembleConfig sets base model weights and degradation policy.
type EnsembleConfig struct {
	// BaseWeights maps model name to its static weight; unlisted models get 1.
	BaseWeights map[string]float64 `yaml:"base_weights"`
	// MinResponders is the floor below which the cycle resolves to hold.
	MinResponders int `yaml:"min_responders"`
	// OutOfRegimeFactor multiplies the weight of a vote cast outside the
	// model's validated regimes. The vote stays in, just quieter.
	OutOfRegimeFactor float64 `yaml:"out_of_regime_factor"`
	// SizeScale maps blended confidence onto the proposed size fraction.
	SizeScale float64 `yaml:"size_scale"`
}

// WeightedEnsemble folds predictor results into one stance. Each responder
// votes with weight = base weight x regime-conditioned reliability; weights
// are normalized over responders only, so a missing model redistributes its
// influence instead of dragging every vote toward zero.
type WeightedEnsemble struct {
	cfg EnsembleConfig
}

func NewWeightedEnsemble(cfg EnsembleConfig) *WeightedEnsemble {
	if cfg.MinResponders <= 0 {
		cfg.MinResponders = 1
	}
	if cfg.OutOfRegimeFactor <= 0 || cfg.OutOfRegimeFactor > 1 {
		cfg.OutOfRegimeFactor = 0.25
	}
	if cfg.SizeScale <= 0 || cfg.SizeScale > 1 {
		cfg.SizeScale = 0.1
	}
	return &WeightedEnsemble{cfg: cfg}
}

func (e *WeightedEnsemble) baseWeight(model string) float64 {
	if w, ok := e.cfg.BaseWeights[model]; ok && w > 0 {
		return w
	}
	return 1
}

// Aggregate decides one direction from the collected results. The returned
// signal always exists; failures only lower confidence or force hold.
func (e *WeightedEnsemble) Aggregate(results []*models.PredictorResult, book *models.ReliabilityBook, regime models.RegimeLabel) (*models.TradeSignal, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no predictor results")
	}

	prov := &models.Provenance{
		Regime:      regime,
		TotalModels: len(results),
	}

	var (
		buyScore, sellScore, holdScore float64
		totalWeight                    float64
		symbol                         string
		clock                          time.Time
	)

	for _, r := range results {
		if !r.Responded() {
			prov.Failed = append(prov.Failed, r.Model)
			continue
		}
		p := r.Prediction
		symbol = p.Symbol
		clock = p.Timestamp
		prov.SchemaID = models.SchemaScalperCoreV1
		rel := book.Score(r.Model, regime)
		w := e.baseWeight(r.Model) * rel
		if r.OutOfRegime {
			w *= e.cfg.OutOfRegimeFactor
		}
		totalWeight += w

		prov.Votes = append(prov.Votes, models.ModelVote{
			Model:       r.Model,
			Direction:   p.Direction,
			Confidence:  p.Confidence,
			Weight:      w,
			Reliability: rel,
			OutOfRegime: r.OutOfRegime,
		})

		switch p.Direction {
		case models.DirectionBuy:
			buyScore += w * p.Confidence
		case models.DirectionSell:
			sellScore += w * p.Confidence
		default:
			holdScore += w * p.Confidence
		}
	}
	prov.Responders = len(prov.Votes)
	prov.FeatureClock = clock

	// The arbiter stamps the ID; aggregation stays free of ID generation so
	// replays stay byte-stable.
	signal := &models.TradeSignal{
		Symbol:     symbol,
		Timestamp:  clock,
		Direction:  models.DirectionHold,
		Provenance: prov,
	}

	if prov.Responders < e.cfg.MinResponders || totalWeight == 0 {
		return signal, nil
	}

	// Normalize weights in provenance so readers see shares, not raw mass.
	for i := range prov.Votes {
		prov.Votes[i].Weight /= totalWeight
	}

	var direction models.Direction
	switch {
	case buyScore > sellScore:
		direction = models.DirectionBuy
	case sellScore > buyScore:
		direction = models.DirectionSell
	default:
		// Exact tie resolves to hold. Never guess.
		return signal, nil
	}
	if holdScore >= buyScore && holdScore >= sellScore {
		return signal, nil
	}

	// Blended confidence is the weight-normalized mean of responder
	// confidences, regardless of which way each vote pointed.
	confidence := (buyScore + sellScore + holdScore) / totalWeight
	// Degrade confidence when part of the ensemble went missing: a 3-of-4
	// answer must never look as sure as a 4-of-4 answer.
	confidence *= float64(prov.Responders) / float64(prov.TotalModels)

	signal.Direction = direction
	signal.Confidence = confidence
	signal.Size = confidence * e.cfg.SizeScale
	return signal, nil
}
