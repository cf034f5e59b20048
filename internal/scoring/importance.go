package scoring

import (
	"math"

	"neuroaid/backend/internal/features"
)

const unweightedImportance = 0.01

// Importance weighs each feature by its prior magnitude plus how extreme its value is, then
// normalizes the map to sum to 1. An all-zero table over a neutral vector is spread uniformly.
func Importance(vec features.Vector, weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, vec.Len())
	var total float64
	for _, name := range vec.Names() {
		base := unweightedImportance
		if w, ok := weights[name]; ok && finite(w) {
			base = math.Abs(w)
		}
		v, _ := vec.Get(name)
		imp := base + math.Abs(v-features.Neutral)*0.1
		out[name] = imp
		total += imp
	}
	return normalizeShares(out, total)
}

// PriorImportance normalizes |weight| over the table. It is the importance reported by degraded
// responses, which have no trustworthy vector to adjust against.
func PriorImportance(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	var total float64
	for _, name := range sortedKeys(weights) {
		w := weights[name]
		if !finite(w) {
			continue
		}
		out[name] = math.Abs(w)
		total += math.Abs(w)
	}
	if len(out) == 0 {
		for name := range weights {
			out[name] = 0
		}
	}
	return normalizeShares(out, total)
}

// normalizeShares scales raw to sum to 1, falling back to equal shares when nothing carries weight.
func normalizeShares(raw map[string]float64, total float64) map[string]float64 {
	if len(raw) == 0 {
		return raw
	}
	if total > 0 && !math.IsInf(total, 0) {
		for name, v := range raw {
			raw[name] = v / total
		}
		return raw
	}
	share := 1 / float64(len(raw))
	for name := range raw {
		raw[name] = share
	}
	return raw
}
