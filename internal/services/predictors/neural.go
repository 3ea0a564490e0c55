package predictors

import (
	"context"
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

// neuralInputs fixes the input ordering; the weight matrices below are laid
// out against it. Changing the order invalidates the embedded weights.
var neuralInputs = []string{
	models.FeatLogReturn1,
	models.FeatLogReturn5,
	models.FeatLogReturn15,
	models.FeatRSI,
	models.FeatEMAFastSlow,
	models.FeatMACD,
	models.FeatVolumeZ,
	models.FeatRangePct,
}

// Per-input normalization (mean, scale) so raw features land near [-1,1].
var neuralNorm = [][2]float64{
	{0, 0.0008},
	{0, 0.0018},
	{0, 0.003},
	{50, 20},
	{1, 0.0015},
	{0, 0.05},
	{0, 1.5},
	{0.002, 0.002},
}

// Hidden layer: 6 tanh units over 8 inputs, then a tanh output unit.
// Weights were exported from offline training and are frozen here.
var neuralW1 = [6][8]float64{
	{0.42, 0.31, 0.12, -0.38, 0.55, 0.21, 0.05, -0.11},
	{-0.27, 0.44, 0.36, 0.18, -0.22, 0.40, -0.08, 0.14},
	{0.15, -0.35, 0.28, 0.52, 0.19, -0.31, 0.22, -0.06},
	{-0.48, 0.12, -0.19, -0.26, 0.33, 0.17, -0.29, 0.35},
	{0.24, 0.08, -0.41, 0.29, -0.16, 0.46, 0.11, -0.23},
	{0.09, -0.21, 0.33, -0.44, 0.27, -0.13, 0.38, 0.19},
}

var neuralB1 = [6]float64{0.05, -0.12, 0.08, 0.02, -0.07, 0.10}

var neuralW2 = [6]float64{0.61, -0.38, 0.47, -0.29, 0.52, -0.33}

const neuralB2 = 0.015

// NeuralConfig tunes the MLP wrapper.
type NeuralConfig struct {
	Timeout  time.Duration        `yaml:"timeout"`
	Deadband float64              `yaml:"deadband"`
	Regimes  []models.RegimeLabel `yaml:"regimes"`
}

// Neural is a tiny fixed-weight MLP. Inference is pure float math with no
// allocation-order or map-iteration dependence, so it replays bit-identically.
type Neural struct {
	cfg NeuralConfig
}

func NewNeural(cfg NeuralConfig) *Neural {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Deadband <= 0 {
		cfg.Deadband = 0.15
	}
	return &Neural{cfg: cfg}
}

func (n *Neural) Name() string           { return "neural" }
func (n *Neural) SchemaID() string       { return models.SchemaScalperCoreV1 }
func (n *Neural) Deterministic() bool    { return true }
func (n *Neural) Timeout() time.Duration { return n.cfg.Timeout }

func (n *Neural) Regimes() []models.RegimeLabel { return n.cfg.Regimes }

func (n *Neural) Predict(_ context.Context, f *models.FeatureVector, _ models.RegimeLabel) (*models.Prediction, error) {
	if err := checkSchema(n.SchemaID(), f); err != nil {
		return nil, err
	}

	var in [8]float64
	for i, name := range neuralInputs {
		v, _ := f.Get(name)
		in[i] = (v - neuralNorm[i][0]) / neuralNorm[i][1]
	}

	var out float64
	for j := 0; j < 6; j++ {
		sum := neuralB1[j]
		for i := 0; i < 8; i++ {
			sum += neuralW1[j][i] * in[i]
		}
		out += neuralW2[j] * math.Tanh(sum)
	}
	score := math.Tanh(out + neuralB2)

	return scoreToPrediction(n.Name(), f, score, n.cfg.Deadband), nil
}
