package store

import "neuroaid/backend/internal/engine"

// FromPrediction converts a scoring response into a history row.
func FromPrediction(res engine.PredictionResult) (*Assessment, error) {
	a, err := NewAssessment(KindScore, res)
	if err != nil {
		return nil, err
	}
	a.RiskScore = res.RiskScore
	a.Confidence = res.Confidence
	a.ModelType = res.ModelType
	a.Degraded = res.Degraded
	a.FeaturesUsed = res.FeaturesUsed
	a.Error = truncate(res.Error, 512)
	return a, nil
}

// FromAttribution converts an explanation response into a history row. Attributions carry no
// confidence of their own.
func FromAttribution(res engine.AttributionResult) (*Assessment, error) {
	a, err := NewAssessment(KindExplain, res)
	if err != nil {
		return nil, err
	}
	a.RiskScore = res.RiskScore
	a.ModelType = res.ModelType
	a.Degraded = res.Degraded
	a.FeaturesUsed = res.Metadata.FeatureCount
	a.Error = truncate(res.Error, 512)
	return a, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
