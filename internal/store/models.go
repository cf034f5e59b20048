package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Assessment kinds.
const (
	KindScore   = "score"
	KindExplain = "explain"
)

// Assessment is one recorded score or explain call.
type Assessment struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Kind         string  `gorm:"size:16;index"`
	RiskScore    float64
	Confidence   float64
	ModelType    string `gorm:"size:32;index"`
	Degraded     bool   `gorm:"index"`
	FeaturesUsed int
	Error        string    `gorm:"size:512"`
	ResponseJSON string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`
}

// NewAssessment builds a row with a fresh ID and the response serialized alongside.
func NewAssessment(kind string, response any) (*Assessment, error) {
	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", kind, err)
	}
	return &Assessment{
		ID:           uuid.NewString(),
		Kind:         kind,
		ResponseJSON: string(payload),
	}, nil
}

// Response returns the stored response as raw JSON, or nil when nothing usable was stored.
func (a *Assessment) Response() json.RawMessage {
	if strings.TrimSpace(a.ResponseJSON) == "" || !json.Valid([]byte(a.ResponseJSON)) {
		return nil
	}
	return json.RawMessage(a.ResponseJSON)
}
