package store

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroaid/backend/internal/engine"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndGetAssessment(t *testing.T) {
	db := openTestDB(t)

	a, err := NewAssessment(KindScore, map[string]any{"riskScore": 0.42})
	require.NoError(t, err)
	a.RiskScore = 0.42
	a.Confidence = 0.81
	a.ModelType = "ensemble"
	a.FeaturesUsed = 5
	require.NoError(t, db.SaveAssessment(a))

	got, err := db.GetAssessment(a.ID)
	require.NoError(t, err)
	assert.Equal(t, KindScore, got.Kind)
	assert.Equal(t, 0.42, got.RiskScore)
	assert.Equal(t, 5, got.FeaturesUsed)
	assert.False(t, got.CreatedAt.IsZero())

	var body map[string]float64
	require.NoError(t, json.Unmarshal(got.Response(), &body))
	assert.Equal(t, 0.42, body["riskScore"])

	_, err = db.GetAssessment("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAssessmentsFiltersAndPages(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		kind := KindScore
		if i%2 == 1 {
			kind = KindExplain
		}
		a, err := NewAssessment(kind, struct{}{})
		require.NoError(t, err)
		a.Degraded = i == 4
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.SaveAssessment(a))
	}

	count, err := db.CountAssessments()
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	rows, total, err := db.ListAssessments(AssessmentQuery{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))

	rows, total, err = db.ListAssessments(AssessmentQuery{Kind: KindExplain})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	rows, _, err = db.ListAssessments(AssessmentQuery{DegradedOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Degraded)
}

func TestSaveAssessmentRejectsBadRows(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.SaveAssessment(nil))
	assert.Error(t, db.SaveAssessment(&Assessment{}))

	var nilDB *Database
	assert.Error(t, nilDB.SaveAssessment(&Assessment{ID: "x"}))
	assert.NoError(t, nilDB.Close())
}

func TestResponseIgnoresInvalidJSON(t *testing.T) {
	assert.Nil(t, (&Assessment{ResponseJSON: "{"}).Response())
	assert.Nil(t, (&Assessment{}).Response())
}

func TestFromPredictionCopiesSummary(t *testing.T) {
	res := engine.PredictionResult{
		RiskScore:    0.3,
		Confidence:   0.4,
		ModelType:    engine.ModelFallback,
		FeaturesUsed: 2,
		Degraded:     true,
		Error:        strings.Repeat("x", 600),
	}
	a, err := FromPrediction(res)
	require.NoError(t, err)
	assert.Equal(t, KindScore, a.Kind)
	assert.Equal(t, 0.3, a.RiskScore)
	assert.True(t, a.Degraded)
	assert.Len(t, a.Error, 512)
	assert.NotEmpty(t, a.ID)

	exp, err := FromAttribution(engine.AttributionResult{RiskScore: 0.6, ModelType: engine.ModelEnsemble, Metadata: engine.AttributionMetadata{FeatureCount: 12}})
	require.NoError(t, err)
	assert.Equal(t, KindExplain, exp.Kind)
	assert.Equal(t, 12, exp.FeaturesUsed)
	assert.NotEqual(t, a.ID, exp.ID)
}
