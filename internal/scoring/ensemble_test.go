package scoring

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"neuroaid/backend/internal/features"
)

func neutralVector() features.Vector {
	return features.NewVector(features.Names(), nil)
}

func TestAggregateWeightedMean(t *testing.T) {
	preds := []Prediction{
		{Model: "a", Score: 0.2, Accuracy: 0.9},
		{Model: "b", Score: 0.8, Accuracy: 0.9},
		{Model: "c", Score: 0.5, Accuracy: 0.8},
	}
	score, ok := Aggregate(preds)
	if !ok {
		t.Fatal("expected aggregation to succeed")
	}
	expected := (0.2*0.9 + 0.8*0.9 + 0.5*0.8) / (0.9 + 0.9 + 0.8)
	if math.Abs(score-expected) > 1e-12 {
		t.Fatalf("expected %v got %v", expected, score)
	}
}

func TestAggregateEmpty(t *testing.T) {
	score, ok := Aggregate(nil)
	if ok || score != NeutralScore {
		t.Fatalf("expected neutral degraded score, got %v ok=%v", score, ok)
	}
}

func TestEnsembleZeroSumWeightsSingleModel(t *testing.T) {
	weights := map[string]float64{
		features.CognitiveHealthScore: 0.3,
		features.HesitationRatio:      -0.3,
	}
	values := make(map[string]float64)
	for _, name := range features.Names() {
		values[name] = 0.5
	}
	vec := features.NewVector(features.Names(), values)
	ens := NewEnsemble(NewWeightedLinear(ModelDescriptor{Name: "only", Accuracy: 0.9, Bias: 1}, weights, 0.5, 0))

	result := ens.Run(vec, rand.New(rand.NewSource(1)))
	if result.Degraded {
		t.Fatal("single healthy model should not degrade")
	}
	if result.Score != 0.5 {
		t.Fatalf("expected 0.5 got %v", result.Score)
	}
	if got := Confidence(result.Scores(), vec.Completeness()); math.Abs(got-0.9) > 1e-12 {
		t.Fatalf("expected single-model confidence 0.9 got %v", got)
	}
}

func TestEnsembleNeutralVectorStaysNearBaseline(t *testing.T) {
	cfg := DefaultConfig()
	ens := NewEnsemble(BuildScorers(cfg)...)
	result := ens.Run(neutralVector(), rand.New(rand.NewSource(7)))
	if len(result.Predictions) != 4 {
		t.Fatalf("expected 4 predictions got %d", len(result.Predictions))
	}
	if math.Abs(result.Score-0.5) > 0.1 {
		t.Fatalf("expected score near 0.5 got %v", result.Score)
	}
}

func TestEnsembleSkipsFailingMembers(t *testing.T) {
	cfg := DefaultConfig()
	broken := map[string]float64{features.LexicalDiversity: math.NaN()}
	ens := NewEnsemble(
		NewWeightedLinear(cfg.Models[0], cfg.Weights, cfg.Baseline, 0),
		NewWeightedLinear(ModelDescriptor{Name: "broken", Accuracy: 0.9, Bias: 1}, broken, cfg.Baseline, 0),
		NewTrained("panicky", 0.8, func(features.Vector) (float64, error) { panic("boom") }),
		NewTrained("erroring", 0.8, func(features.Vector) (float64, error) { return 0, errors.New("offline") }),
		NewWeightedLinear(ModelDescriptor{Name: "zero-accuracy", Accuracy: 0, Bias: 1}, cfg.Weights, cfg.Baseline, 0),
	)
	result := ens.Run(neutralVector(), nil)
	if len(result.Predictions) != 1 {
		t.Fatalf("expected 1 surviving prediction got %d", len(result.Predictions))
	}
	if len(result.Failures) != 4 {
		t.Fatalf("expected 4 failures got %d", len(result.Failures))
	}
	if !errors.Is(result.Failures[0].Err, ErrMalformedWeights) {
		t.Fatalf("expected malformed weights error, got %v", result.Failures[0].Err)
	}
	if result.Degraded {
		t.Fatal("one survivor is enough")
	}
}

func TestEnsembleEmptyIsDegraded(t *testing.T) {
	result := NewEnsemble().Run(neutralVector(), nil)
	if !result.Degraded || result.Score != NeutralScore {
		t.Fatalf("expected degraded neutral result, got %+v", result)
	}
	if got := Confidence(result.Scores(), 1); got != MinConfidence {
		t.Fatalf("expected minimum confidence got %v", got)
	}
}

func TestEnsembleSeededRunsAreIdentical(t *testing.T) {
	cfg := DefaultConfig()
	vec := features.NewVector(features.Names(), map[string]float64{
		features.CognitiveHealthScore: 0.8,
		features.HesitationRatio:      0.1,
	})
	ens := NewEnsemble(BuildScorers(cfg)...)
	first := ens.Run(vec, rand.New(rand.NewSource(42)))
	second := ens.Run(vec, rand.New(rand.NewSource(42)))
	if first.Score != second.Score {
		t.Fatalf("seeded runs diverged: %v vs %v", first.Score, second.Score)
	}
	for i := range first.Predictions {
		if first.Predictions[i] != second.Predictions[i] {
			t.Fatalf("prediction %d diverged", i)
		}
	}
}

func TestWeightedLinearNegativeWeightLowersScore(t *testing.T) {
	cfg := DefaultConfig()
	m := NewWeightedLinear(ModelDescriptor{Name: "m", Accuracy: 1, Bias: 1}, cfg.Weights, cfg.Baseline, 0)
	vec := features.NewVector(features.Names(), map[string]float64{features.HesitationRatio: 1})
	score, err := m.Predict(vec, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(score-0.45) > 1e-12 {
		t.Fatalf("expected 0.45 got %v", score)
	}
}

func TestRuleBasedBlend(t *testing.T) {
	r := NewRuleBased("rule", 0.76, features.CognitiveHealthScore, 0.5)
	vec := features.NewVector(features.Names(), map[string]float64{features.CognitiveHealthScore: 1})
	score, err := r.Predict(vec, nil)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(score-0.85) > 1e-12 {
		t.Fatalf("expected 0.85 got %v", score)
	}
}

func TestImportanceSumsToOne(t *testing.T) {
	cfg := DefaultConfig()
	vec := features.NewVector(features.Names(), map[string]float64{features.HesitationRatio: 1})
	imp := Importance(vec, cfg.Weights)
	var sum float64
	for _, v := range imp {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected importance to sum to 1 got %v", sum)
	}
	if imp[features.CognitiveHealthScore] <= imp[features.SentenceCount] {
		t.Fatal("heavier weight should carry more importance")
	}
}

func TestImportanceZeroTableIsUniform(t *testing.T) {
	zero := make(map[string]float64)
	for _, name := range features.Names() {
		zero[name] = 0
	}
	tests := []struct {
		name string
		imp  map[string]float64
	}{
		{"neutral vector", Importance(neutralVector(), zero)},
		{"prior", PriorImportance(zero)},
		{"prior all malformed", PriorImportance(map[string]float64{features.WordCount: math.NaN(), features.SentenceCount: math.Inf(1)})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if len(tc.imp) == 0 {
				t.Fatal("expected a non-empty importance map")
			}
			var sum float64
			want := 1 / float64(len(tc.imp))
			for name, v := range tc.imp {
				if math.Abs(v-want) > 1e-12 {
					t.Fatalf("expected %v for %s got %v", want, name, v)
				}
				sum += v
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Fatalf("expected importance to sum to 1 got %v", sum)
			}
		})
	}
}
