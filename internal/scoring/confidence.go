package scoring

import "math"

// Confidence bounds.
const (
	MinConfidence = 0.3
	MaxConfidence = 0.95

	singleModelConfidence = 0.7
	agreementFloor        = 0.5
	completenessWeight    = 0.2
	extremityWeight       = 0.1
)

// Confidence derives a bounded confidence from member agreement, feature completeness and how far
// the mean prediction sits from 0.5. completeness is the share of present raw features.
func Confidence(preds []float64, completeness float64) float64 {
	if len(preds) == 0 {
		return MinConfidence
	}
	base := singleModelConfidence
	if len(preds) > 1 {
		base = math.Max(agreementFloor, 1-2*stdDev(preds))
	}
	completeness = math.Max(0, math.Min(1, completeness))
	extremity := math.Abs(mean(preds)-0.5) * extremityWeight
	conf := base + completeness*completenessWeight + extremity
	return math.Max(MinConfidence, math.Min(MaxConfidence, conf))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
