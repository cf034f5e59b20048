package engine

import (
	"runtime"

	"neuroaid/backend/internal/explain"
	"neuroaid/backend/internal/render"
)

// HealthReport lists which optional capabilities are usable in this process.
type HealthReport struct {
	Available    bool              `json:"available"`
	Capabilities map[string]bool   `json:"capabilities"`
	Versions     map[string]string `json:"versions"`
	Models       []string          `json:"models"`
	FeatureCount int               `json:"featureCount"`
	Error        string            `json:"error,omitempty"`
}

// UnavailableHealth is reported when no engine could be built at all.
func UnavailableHealth(err error) HealthReport {
	return HealthReport{
		Capabilities: map[string]bool{},
		Versions:     map[string]string{"go": runtime.Version()},
		Models:       []string{},
		Error:        errString(err),
	}
}

// Health reports the engine's capabilities. storage is supplied by the caller since the engine
// itself never persists anything.
func (e *Engine) Health(storage bool) HealthReport {
	charts := e.renderer.Enabled()
	caps := map[string]bool{
		"scoring":                 true,
		"shapGeneration":          true,
		"visualizationGeneration": charts,
		"storage":                 storage,
	}
	for _, kind := range render.Kinds() {
		caps[kind+"Plots"] = charts
	}
	models := make([]string, 0, len(e.cfg.Models))
	for _, m := range e.cfg.Models {
		models = append(models, m.Name)
	}
	return HealthReport{
		Available:    e.ensemble.Size() > 0,
		Capabilities: caps,
		Versions: map[string]string{
			"go":          runtime.Version(),
			"attribution": explain.Backend,
		},
		Models:       models,
		FeatureCount: len(e.cfg.Features),
	}
}
