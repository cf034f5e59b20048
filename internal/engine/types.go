package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"neuroaid/backend/internal/render"
)

// Model types reported on responses.
const (
	ModelEnsemble = "ensemble"
	ModelFallback = "fallback"
	ModelError    = "error"
)

// ErrInvalidInput marks a malformed request payload.
var ErrInvalidInput = errors.New("invalid input")

// FeatureMap is a raw measurement mapping. Null or non-numeric JSON values decode as absent.
type FeatureMap map[string]float64

// UnmarshalJSON keeps numeric entries and drops everything else.
func (m *FeatureMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: features must be an object: %v", ErrInvalidInput, err)
	}
	out := make(FeatureMap, len(raw))
	for name, value := range raw {
		if string(value) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			continue
		}
		out[name] = f
	}
	*m = out
	return nil
}

// Options carries per-request controls.
type Options struct {
	NoiseSeed        *int64   `json:"noiseSeed,omitempty"`
	ExplanationTypes []string `json:"explanationTypes,omitempty"`
	OutputPath       string   `json:"outputPath,omitempty"`
}

// ScoreRequest is the scoring payload.
type ScoreRequest struct {
	Features FeatureMap `json:"features"`
	Options  Options    `json:"options"`
}

// PredictionInput is the previously computed prediction an explanation refers to.
type PredictionInput struct {
	RiskScore *float64 `json:"riskScore,omitempty"`
}

// ExplainRequest is the attribution payload.
type ExplainRequest struct {
	Features   FeatureMap      `json:"features"`
	Prediction PredictionInput `json:"prediction"`
	Options    Options         `json:"options"`
}

// ParseScoreRequest decodes and validates a scoring payload.
func ParseScoreRequest(data []byte) (ScoreRequest, error) {
	var req ScoreRequest
	if err := decodeObject(data, &req); err != nil {
		return ScoreRequest{}, err
	}
	return req, nil
}

// ParseExplainRequest decodes and validates an attribution payload.
func ParseExplainRequest(data []byte) (ExplainRequest, error) {
	var req ExplainRequest
	if err := decodeObject(data, &req); err != nil {
		return ExplainRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return ExplainRequest{}, err
	}
	return req, nil
}

// Validate checks the fields the engine cannot repair on its own.
func (r ExplainRequest) Validate() error {
	if s := r.Prediction.RiskScore; s != nil {
		if math.IsNaN(*s) || *s < 0 || *s > 1 {
			return fmt.Errorf("%w: prediction.riskScore %v outside [0,1]", ErrInvalidInput, *s)
		}
	}
	return nil
}

func decodeObject(data []byte, v any) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("%w: no input data provided", ErrInvalidInput)
	}
	if err := json.Unmarshal(data, v); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// PredictionResult is the scoring response.
type PredictionResult struct {
	RiskScore         float64            `json:"riskScore"`
	Confidence        float64            `json:"confidence"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
	ModelPredictions  map[string]float64 `json:"modelPredictions"`
	ProcessingTime    float64            `json:"processingTime"`
	ModelType         string             `json:"modelType"`
	FeaturesUsed      int                `json:"featuresUsed"`
	Timestamp         string             `json:"timestamp"`
	Degraded          bool               `json:"degraded"`
	Error             string             `json:"error,omitempty"`
}

// AttributionMetadata describes how an attribution was produced.
type AttributionMetadata struct {
	Backend       string  `json:"backend"`
	Timestamp     string  `json:"timestamp"`
	FeatureCount  int     `json:"featureCount"`
	ScoreSource   string  `json:"scoreSource"`
	Amplification float64 `json:"amplification"`
	Unstable      bool    `json:"unstable"`
}

// AttributionResult is the explanation response. ShapValues sum to Total, which equals
// RiskScore − BaseValue unless Degraded.
type AttributionResult struct {
	ShapValues     map[string]float64       `json:"shapValues"`
	BaseValue      float64                  `json:"baseValue"`
	ExpectedValue  float64                  `json:"expectedValue"`
	RiskScore      float64                  `json:"riskScore"`
	Total          float64                  `json:"total"`
	FeatureNames   []string                 `json:"featureNames"`
	FeatureValues  map[string]float64       `json:"featureValues"`
	ModelType      string                   `json:"modelType"`
	ProcessingTime float64                  `json:"processingTime"`
	Visualizations map[string]render.Status `json:"visualizations"`
	Degraded       bool                     `json:"degraded"`
	Error          string                   `json:"error,omitempty"`
	Metadata       AttributionMetadata      `json:"metadata"`
}

// ErrorPrediction is the response written when a request could not be processed at all.
func ErrorPrediction(err error, now time.Time) PredictionResult {
	return PredictionResult{
		RiskScore:         0.5,
		Confidence:        0.3,
		FeatureImportance: map[string]float64{},
		ModelPredictions:  map[string]float64{},
		ModelType:         ModelError,
		Timestamp:         now.Format(time.RFC3339Nano),
		Degraded:          true,
		Error:             errString(err),
	}
}

// ErrorAttribution is the attribution counterpart of ErrorPrediction.
func ErrorAttribution(err error, now time.Time) AttributionResult {
	return AttributionResult{
		ShapValues:     map[string]float64{},
		BaseValue:      0.5,
		ExpectedValue:  0.5,
		RiskScore:      0.5,
		FeatureNames:   []string{},
		FeatureValues:  map[string]float64{},
		ModelType:      ModelError,
		Visualizations: map[string]render.Status{},
		Degraded:       true,
		Error:          errString(err),
		Metadata: AttributionMetadata{
			Backend:   "error",
			Timestamp: now.Format(time.RFC3339Nano),
		},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
