package scoring

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"neuroaid/backend/internal/features"
)

// NeutralScore is returned when no ensemble member survives.
const NeutralScore = 0.5

// Prediction is one surviving member's output.
type Prediction struct {
	Model    string  `json:"model"`
	Score    float64 `json:"score"`
	Accuracy float64 `json:"accuracy"`
}

// ModelFailure records a member excluded from aggregation.
type ModelFailure struct {
	Model string `json:"model"`
	Err   error  `json:"-"`
}

// EnsembleResult is the aggregated risk score plus the per-member detail behind it.
type EnsembleResult struct {
	Score       float64
	Predictions []Prediction
	Failures    []ModelFailure
	Degraded    bool
}

// PredictionMap returns member name to score.
func (r EnsembleResult) PredictionMap() map[string]float64 {
	out := make(map[string]float64, len(r.Predictions))
	for _, p := range r.Predictions {
		out[p.Model] = p.Score
	}
	return out
}

// Scores returns the surviving predictions in member order.
func (r EnsembleResult) Scores() []float64 {
	out := make([]float64, len(r.Predictions))
	for i, p := range r.Predictions {
		out[i] = p.Score
	}
	return out
}

// Ensemble runs a fixed set of scorers and aggregates them by accuracy.
type Ensemble struct {
	members []Scorer
}

// NewEnsemble keeps members in the given order; order matters for seeded determinism.
func NewEnsemble(members ...Scorer) *Ensemble {
	return &Ensemble{members: append([]Scorer(nil), members...)}
}

// Size is the number of configured members.
func (e *Ensemble) Size() int {
	if e == nil {
		return 0
	}
	return len(e.members)
}

// Run scores vec with every member. A failing member is logged and excluded; an empty survivor
// set yields NeutralScore with Degraded set.
func (e *Ensemble) Run(vec features.Vector, rng *rand.Rand) EnsembleResult {
	var result EnsembleResult
	if e != nil {
		for _, m := range e.members {
			p, err := predictSafely(m, vec, rng)
			if err != nil {
				logrus.WithError(err).WithField("model", m.Name()).Warn("ensemble member skipped")
				result.Failures = append(result.Failures, ModelFailure{Model: m.Name(), Err: err})
				continue
			}
			result.Predictions = append(result.Predictions, p)
		}
	}
	score, ok := Aggregate(result.Predictions)
	result.Score = score
	result.Degraded = !ok
	return result
}

// Aggregate is the accuracy-weighted mean of preds, clamped to [0,1]. It reports false and
// NeutralScore when there is nothing to aggregate.
func Aggregate(preds []Prediction) (float64, bool) {
	var weighted, total float64
	for _, p := range preds {
		weighted += p.Score * p.Accuracy
		total += p.Accuracy
	}
	if len(preds) == 0 || total <= 0 {
		return NeutralScore, false
	}
	return features.Clamp01(weighted / total), true
}

func predictSafely(m Scorer, vec features.Vector, rng *rand.Rand) (p Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model %s panicked: %v", m.Name(), r)
		}
	}()
	acc := m.Accuracy()
	if !(acc > 0 && acc <= 1) {
		return Prediction{}, fmt.Errorf("%w: model %s accuracy %v", ErrMalformedWeights, m.Name(), acc)
	}
	score, err := m.Predict(vec, rng)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Model: m.Name(), Score: score, Accuracy: acc}, nil
}
