package explain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"neuroaid/backend/internal/features"
)

// Backend identifies the attribution method in response metadata.
const Backend = "linear-rescale"

const degenerateTolerance = 1e-12

var (
	// ErrDegenerate means every raw contribution cancelled while a non-zero total was requested.
	ErrDegenerate = errors.New("attribution degenerate: contributions cancel but target is non-zero")
	// ErrMalformedWeights means the weight table cannot be used for attribution.
	ErrMalformedWeights = errors.New("attribution weight table malformed")
	// ErrInvalidScore means the score to explain is not a finite number.
	ErrInvalidScore = errors.New("attribution score is not finite")
)

// Result is a signed per-feature attribution. When Degraded is false the contributions sum to
// Target (score − baseline).
type Result struct {
	Names         []string
	Contributions map[string]float64
	Baseline      float64
	Target        float64
	Total         float64
	Amplification float64
	Unstable      bool
	Degraded      bool
	Err           error
}

// Generator produces conservation-constrained attributions from a shared weight table.
type Generator struct {
	names            []string
	weights          map[string]float64
	baseline         float64
	noiseSigma       float64
	maxAmplification float64
}

// NewGenerator builds a generator over names, keeping only names that carry a weight.
// maxAmplification <= 0 disables the instability flag.
func NewGenerator(names []string, weights map[string]float64, baseline, noiseSigma, maxAmplification float64) *Generator {
	g := &Generator{
		weights:          make(map[string]float64, len(weights)),
		baseline:         baseline,
		noiseSigma:       noiseSigma,
		maxAmplification: maxAmplification,
	}
	for _, name := range names {
		w, ok := weights[name]
		if !ok {
			continue
		}
		g.names = append(g.names, name)
		g.weights[name] = w
	}
	return g
}

// Baseline is the expected value contributions are measured from.
func (g *Generator) Baseline() float64 { return g.baseline }

// Attribute explains score for vec. Raw contributions (value − 0.5) × weight receive relative
// jitter from rng, then a single rescale forces their sum onto score − baseline.
func (g *Generator) Attribute(vec features.Vector, score float64, rng *rand.Rand) Result {
	res := Result{
		Names:         append([]string(nil), g.names...),
		Contributions: make(map[string]float64, len(g.names)),
		Baseline:      g.baseline,
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return g.degrade(res, ErrInvalidScore)
	}
	res.Target = score - g.baseline

	raw := make([]float64, len(g.names))
	var rawSum float64
	for i, name := range g.names {
		w := g.weights[name]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return g.degrade(res, fmt.Errorf("%w: %s=%v", ErrMalformedWeights, name, w))
		}
		v, ok := vec.Get(name)
		if !ok {
			v = features.Neutral
		}
		raw[i] = (v - features.Neutral) * w
		rawSum += raw[i]
	}

	if math.Abs(rawSum) < degenerateTolerance {
		for _, name := range g.names {
			res.Contributions[name] = 0
		}
		if math.Abs(res.Target) > degenerateTolerance {
			res.Degraded = true
			res.Err = ErrDegenerate
		}
		return res
	}

	perturbed := make([]float64, len(raw))
	var perturbedSum float64
	for i, r := range raw {
		perturbed[i] = r
		if rng != nil && g.noiseSigma > 0 {
			perturbed[i] = r * (1 + rng.NormFloat64()*g.noiseSigma)
		}
		perturbedSum += perturbed[i]
	}
	if math.Abs(perturbedSum) < degenerateTolerance {
		perturbed, perturbedSum = raw, rawSum
	}

	factor := res.Target / perturbedSum
	res.Amplification = factor
	res.Unstable = g.maxAmplification > 0 && math.Abs(factor) > g.maxAmplification

	largest := 0
	for i, name := range g.names {
		c := perturbed[i] * factor
		res.Contributions[name] = c
		if math.Abs(c) > math.Abs(res.Contributions[g.names[largest]]) {
			largest = i
		}
	}
	// Fold floating-point residue into the dominant term so the emitted sum is the target.
	// Residue and Total both come from Sum so they share one summation order.
	if residual := res.Target - Sum(res.Contributions); residual != 0 {
		res.Contributions[g.names[largest]] += residual
	}
	res.Total = Sum(res.Contributions)
	return res
}

func (g *Generator) degrade(res Result, err error) Result {
	res.Names = nil
	res.Contributions = map[string]float64{}
	res.Total = 0
	res.Degraded = true
	res.Err = err
	return res
}

// Sum adds contributions in a stable order.
func Sum(contributions map[string]float64) float64 {
	names := make([]string, 0, len(contributions))
	for name := range contributions {
		names = append(names, name)
	}
	sort.Strings(names)
	var total float64
	for _, name := range names {
		total += contributions[name]
	}
	return total
}
