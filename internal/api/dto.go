package api

import (
	"encoding/json"
	"time"

	"neuroaid/backend/internal/features"
	"neuroaid/backend/internal/scoring"
	"neuroaid/backend/internal/store"
)

// ConfigResponse exposes the engine tables to clients.
type ConfigResponse struct {
	Features       []string                  `json:"features"`
	Weights        map[string]float64        `json:"weights"`
	Ranges         map[string]features.Range `json:"ranges,omitempty"`
	Models         []scoring.ModelDescriptor `json:"models"`
	Baseline       float64                   `json:"baseline"`
	PrimaryFeature string                    `json:"primary_feature"`
	Explanations   []string                  `json:"explanation_types"`
}

// AssessmentDTO is the API representation of a recorded assessment.
type AssessmentDTO struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	RiskScore    float64         `json:"risk_score"`
	Confidence   float64         `json:"confidence"`
	ModelType    string          `json:"model_type"`
	Degraded     bool            `json:"degraded"`
	FeaturesUsed int             `json:"features_used"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Response     json.RawMessage `json:"response,omitempty"`
}

// AssessmentsResponse holds a page of assessments and the total count.
type AssessmentsResponse struct {
	Items []AssessmentDTO `json:"items"`
	Total int64           `json:"total"`
}

// AssessmentFromModel converts a store.Assessment into the DTO. The stored response body is only
// included on detail lookups.
func AssessmentFromModel(a store.Assessment, withResponse bool) AssessmentDTO {
	dto := AssessmentDTO{
		ID:           a.ID,
		Kind:         a.Kind,
		RiskScore:    a.RiskScore,
		Confidence:   a.Confidence,
		ModelType:    a.ModelType,
		Degraded:     a.Degraded,
		FeaturesUsed: a.FeaturesUsed,
		Error:        a.Error,
		CreatedAt:    a.CreatedAt,
	}
	if withResponse {
		dto.Response = a.Response()
	}
	return dto
}
