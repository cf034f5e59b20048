package scoring

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"neuroaid/backend/internal/features"
)

var (
	// ErrMalformedWeights marks a weight or bias that cannot take part in arithmetic.
	ErrMalformedWeights = errors.New("malformed weight table")
	// ErrInvalidPrediction is returned when a scorer produces a non-finite value.
	ErrInvalidPrediction = errors.New("invalid prediction")
	// ErrNoModels means every ensemble member failed or none were configured.
	ErrNoModels = errors.New("no model produced a prediction")
)

// Scorer is one ensemble member. Implementations must not retain vec or rng.
type Scorer interface {
	Name() string
	Accuracy() float64
	Predict(vec features.Vector, rng *rand.Rand) (float64, error)
}

// WeightedLinear is a baseline-anchored linear model: the neutral vector maps to the baseline and
// each feature moves the score by weight × (value − neutral), scaled by the model bias.
type WeightedLinear struct {
	desc       ModelDescriptor
	weights    map[string]float64
	baseline   float64
	noiseSigma float64
}

// NewWeightedLinear builds a linear member sharing the engine's weight table.
func NewWeightedLinear(desc ModelDescriptor, weights map[string]float64, baseline, noiseSigma float64) *WeightedLinear {
	return &WeightedLinear{desc: desc, weights: weights, baseline: baseline, noiseSigma: noiseSigma}
}

func (m *WeightedLinear) Name() string      { return m.desc.Name }
func (m *WeightedLinear) Accuracy() float64 { return m.desc.Accuracy }

// Predict computes the biased weighted deviation, adds N(0, σ) noise and clamps to [0,1].
func (m *WeightedLinear) Predict(vec features.Vector, rng *rand.Rand) (float64, error) {
	if !finite(m.desc.Bias) {
		return 0, fmt.Errorf("%w: model %s bias %v", ErrMalformedWeights, m.desc.Name, m.desc.Bias)
	}
	var deviation float64
	for _, name := range vec.Names() {
		w, ok := m.weights[name]
		if !ok {
			continue
		}
		if !finite(w) {
			return 0, fmt.Errorf("%w: %s=%v", ErrMalformedWeights, name, w)
		}
		v, _ := vec.Get(name)
		deviation += (v - features.Neutral) * w * m.desc.Bias
	}
	score := m.baseline + deviation
	if rng != nil && m.noiseSigma > 0 {
		score += rng.NormFloat64() * m.noiseSigma
	}
	if !finite(score) {
		return 0, fmt.Errorf("%w: model %s", ErrInvalidPrediction, m.desc.Name)
	}
	return features.Clamp01(score), nil
}

// RuleBased blends a single primary feature 70/30 with the baseline.
type RuleBased struct {
	name     string
	accuracy float64
	primary  string
	baseline float64
}

// NewRuleBased builds the single-feature rule. An empty primary always yields the baseline.
func NewRuleBased(name string, accuracy float64, primary string, baseline float64) *RuleBased {
	return &RuleBased{name: name, accuracy: accuracy, primary: primary, baseline: baseline}
}

func (r *RuleBased) Name() string      { return r.name }
func (r *RuleBased) Accuracy() float64 { return r.accuracy }

func (r *RuleBased) Predict(vec features.Vector, _ *rand.Rand) (float64, error) {
	v, ok := vec.Get(r.primary)
	if !ok {
		return r.baseline, nil
	}
	return PrimaryBlend(v, r.baseline), nil
}

// PrimaryBlend is the 70/30 blend of a primary measurement with the baseline.
func PrimaryBlend(primary, baseline float64) float64 {
	return features.Clamp01(primary*0.7 + baseline*0.3)
}

// PredictFunc is the contract a trained model has to satisfy to join the ensemble.
type PredictFunc func(vec features.Vector) (float64, error)

// Trained adapts an externally trained model to Scorer.
type Trained struct {
	name     string
	accuracy float64
	predict  PredictFunc
}

// NewTrained wraps fn as an ensemble member.
func NewTrained(name string, accuracy float64, fn PredictFunc) *Trained {
	return &Trained{name: name, accuracy: accuracy, predict: fn}
}

func (t *Trained) Name() string      { return t.name }
func (t *Trained) Accuracy() float64 { return t.accuracy }

func (t *Trained) Predict(vec features.Vector, _ *rand.Rand) (float64, error) {
	if t.predict == nil {
		return 0, fmt.Errorf("%w: model %s has no predictor", ErrInvalidPrediction, t.name)
	}
	score, err := t.predict(vec)
	if err != nil {
		return 0, fmt.Errorf("model %s: %w", t.name, err)
	}
	if !finite(score) {
		return 0, fmt.Errorf("%w: model %s", ErrInvalidPrediction, t.name)
	}
	return features.Clamp01(score), nil
}

// BuildScorers turns the descriptor table into ensemble members in table order.
func BuildScorers(cfg Config) []Scorer {
	out := make([]Scorer, 0, len(cfg.Models))
	for _, desc := range cfg.Models {
		switch desc.Kind {
		case KindRuleBased:
			out = append(out, NewRuleBased(desc.Name, desc.Accuracy, cfg.PrimaryFeature, cfg.Baseline))
		default:
			out = append(out, NewWeightedLinear(desc, cfg.Weights, cfg.Baseline, cfg.NoiseSigma))
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
