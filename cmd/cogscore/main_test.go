package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroaid/backend/internal/api"
	"neuroaid/backend/internal/engine"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"COGSCORE_CONFIG", "COGSCORE_DB_PATH", "COGSCORE_NOISE_SIGMA", "COGSCORE_VISUALIZATION_DIR", "LOG_LEVEL", "PORT"} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestScoreCommand(t *testing.T) {
	clearEnv(t)
	out, _, err := run(t, "", "score", `{"features":{"cognitiveHealthScore":0.7,"hesitationRatio":0.2},"options":{"noiseSeed":3}}`)
	require.NoError(t, err)

	var res engine.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, engine.ModelEnsemble, res.ModelType)
	assert.Equal(t, 2, res.FeaturesUsed)
	assert.GreaterOrEqual(t, res.Confidence, 0.3)
	assert.LessOrEqual(t, res.Confidence, 0.95)
}

func TestScoreCommandReadsStdin(t *testing.T) {
	clearEnv(t)
	out, _, err := run(t, `{"features":{}}`, "score")
	require.NoError(t, err)
	var res engine.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.FeaturesUsed)
}

func TestScoreCommandMalformedInput(t *testing.T) {
	clearEnv(t)
	out, _, err := run(t, "", "score", `{"features":`)
	require.Error(t, err)

	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	var res engine.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, engine.ModelError, res.ModelType)
	assert.Equal(t, 0.5, res.RiskScore)
	assert.Equal(t, 0.3, res.Confidence)
	assert.NotEmpty(t, res.Error)
}

func TestExplainCommand(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	payload := `{"features":{"cognitiveHealthScore":0.9},"prediction":{"riskScore":0.7},` +
		`"options":{"noiseSeed":1,"explanationTypes":["bar"],"outputPath":"` + filepath.ToSlash(dir) + `"}}`
	out, _, err := run(t, "", "explain", payload)
	require.NoError(t, err)

	var res engine.AttributionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Degraded)
	assert.InDelta(t, 0.2, res.Total, 1e-9)
	require.Equal(t, "generated", res.Visualizations["bar"].Status)
	_, statErr := os.Stat(filepath.Join(dir, res.Visualizations["bar"].Filename))
	assert.NoError(t, statErr)
}

func TestExplainCommandRejectsOutOfRangeScore(t *testing.T) {
	clearEnv(t)
	out, _, err := run(t, "", "explain", `{"features":{},"prediction":{"riskScore":-0.1}}`)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, out, `"modelType": "error"`)
}

func TestHealthCommandAndLegacyFlag(t *testing.T) {
	clearEnv(t)
	for _, args := range [][]string{{"health"}, {"--health-check"}} {
		out, _, err := run(t, "", args...)
		require.NoError(t, err)
		var h engine.HealthReport
		require.NoError(t, json.Unmarshal([]byte(out), &h), args)
		assert.True(t, h.Available)
		assert.True(t, h.Capabilities["shapGeneration"])
		assert.False(t, h.Capabilities["storage"])
	}
}

func TestHealthCommandReportsBrokenConfig(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	for _, args := range [][]string{{"--config", missing, "health"}, {"--config", missing, "--health-check"}} {
		out, _, err := run(t, "", args...)
		require.Error(t, err, args)

		var h engine.HealthReport
		require.NoError(t, json.Unmarshal([]byte(out), &h), args)
		assert.False(t, h.Available)
		assert.Contains(t, h.Error, "read engine config")
	}
}

func TestConfigFlagAndNoiseEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("COGSCORE_NOISE_SIGMA", "0")
	cfgPath := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("models:\n  - name: only\n    kind: weighted_linear\n    accuracy: 0.9\n    bias: 1\n"), 0o644))

	out, _, err := run(t, "", "--config", cfgPath, "score", `{"features":{}}`)
	require.NoError(t, err)
	var res engine.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, map[string]float64{"only": 0.5}, res.ModelPredictions)
	assert.Equal(t, 0.5, res.RiskScore)

	_, _, err = run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "score", `{"features":{}}`)
	require.Error(t, err)
	var inputErr *InputError
	assert.False(t, errors.As(err, &inputErr), "config failures are not input errors")
}

func TestHistoryCommand(t *testing.T) {
	clearEnv(t)
	db := filepath.Join(t.TempDir(), "history.db")

	_, _, err := run(t, "", "--db", db, "score", `{"features":{"wordCount":0.3}}`)
	require.NoError(t, err)
	_, _, err = run(t, "", "--db", db, "score", `{"features":{"wordCount":0.6}}`)
	require.NoError(t, err)

	out, _, err := run(t, "", "--db", db, "history", "--limit", "1")
	require.NoError(t, err)
	var list api.AssessmentsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.EqualValues(t, 2, list.Total)
	require.Len(t, list.Items, 1)

	out, _, err = run(t, "", "--db", db, "history", "--id", list.Items[0].ID)
	require.NoError(t, err)
	var detail api.AssessmentDTO
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Contains(t, string(detail.Response), "riskScore")

	_, _, err = run(t, "", "history")
	assert.Error(t, err)
}
