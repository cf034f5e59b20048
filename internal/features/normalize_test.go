package features

import (
	"math"
	"testing"
)

func TestNormalizeFillsMissingWithNeutral(t *testing.T) {
	vec := NewNormalizer(Names(), nil).Normalize(nil)
	if vec.Len() != 12 {
		t.Fatalf("expected 12 features got %d", vec.Len())
	}
	for _, name := range Names() {
		v, ok := vec.Get(name)
		if !ok {
			t.Fatalf("missing %s", name)
		}
		if v != Neutral {
			t.Fatalf("%s: expected %v got %v", name, Neutral, v)
		}
	}
	if vec.Present() != 0 {
		t.Fatalf("expected 0 present got %d", vec.Present())
	}
}

func TestNormalizeClampsAndCounts(t *testing.T) {
	raw := map[string]float64{
		LexicalDiversity:     1.7,
		HesitationRatio:      -0.2,
		CognitiveHealthScore: 0.42,
		WordCount:            math.NaN(),
		SentenceCount:        math.Inf(1),
		"unknownFeature":     0.9,
	}
	vec := NewNormalizer(Names(), nil).Normalize(raw)

	tests := []struct {
		name     string
		expected float64
	}{
		{LexicalDiversity, 1},
		{HesitationRatio, 0},
		{CognitiveHealthScore, 0.42},
		{WordCount, Neutral},
		{SentenceCount, Neutral},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := vec.Get(tc.name)
			if got != tc.expected {
				t.Fatalf("expected %v got %v", tc.expected, got)
			}
		})
	}
	if vec.Present() != 3 {
		t.Fatalf("expected 3 present got %d", vec.Present())
	}
	if _, ok := vec.Get("unknownFeature"); ok {
		t.Fatal("unknown feature should not be carried into the vector")
	}
	if got := vec.Completeness(); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("expected completeness 0.25 got %v", got)
	}
}

func TestNormalizeRescalesConfiguredRanges(t *testing.T) {
	ranges := map[string]Range{
		WordCount:       {Min: 10, Max: 500},
		HesitationRatio: {Min: 0, Max: 0.3},
		SentenceCount:   {Min: 5, Max: 5},
	}
	vec := NewNormalizer(Names(), ranges).Normalize(map[string]float64{
		WordCount:       255,
		HesitationRatio: 0.9,
		SentenceCount:   0.3,
	})
	if got, _ := vec.Get(WordCount); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("wordCount: expected 0.5 got %v", got)
	}
	if got, _ := vec.Get(HesitationRatio); got != 1 {
		t.Fatalf("hesitationRatio: expected 1 got %v", got)
	}
	if got, _ := vec.Get(SentenceCount); got != 0.3 {
		t.Fatalf("degenerate range should fall back to clamping, got %v", got)
	}
}

func TestNormalizeOutputAlwaysBounded(t *testing.T) {
	inputs := []float64{-1e308, -3, -0.0001, 0, 0.5, 1, 1.0001, 42, 1e308, math.Inf(-1), math.NaN()}
	n := NewNormalizer(Names(), map[string]Range{WordCount: {Min: 10, Max: 500}})
	for _, in := range inputs {
		raw := make(map[string]float64)
		for _, name := range Names() {
			raw[name] = in
		}
		vec := n.Normalize(raw)
		for name, v := range vec.Values() {
			if v < 0 || v > 1 {
				t.Fatalf("input %v produced %s=%v outside [0,1]", in, name, v)
			}
		}
	}
}

func TestNormalizerValueMatchesNormalize(t *testing.T) {
	n := NewNormalizer(Names(), map[string]Range{WordCount: {Min: 10, Max: 500}})
	tests := []struct {
		name   string
		raw    float64
		ok     bool
		want   float64
		wantOK bool
	}{
		{"rescaled", 255, true, 0.5, true},
		{"clamped", 1000, true, 1, true},
		{"missing", 0, false, Neutral, false},
		{"nan", math.NaN(), true, Neutral, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := n.Value(WordCount, tc.raw, tc.ok)
			if ok != tc.wantOK || math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("expected %v/%v got %v/%v", tc.want, tc.wantOK, got, ok)
			}
			if tc.ok {
				vec := n.Normalize(map[string]float64{WordCount: tc.raw})
				if v, _ := vec.Get(WordCount); v != got {
					t.Fatalf("expected Normalize to agree: %v vs %v", v, got)
				}
			}
		})
	}
}
