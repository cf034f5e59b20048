package scoring

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"neuroaid/backend/internal/features"
)

// Model kinds understood by BuildScorers.
const (
	KindWeightedLinear = "weighted_linear"
	KindRuleBased      = "rule_based"
)

// ModelDescriptor names one ensemble member. Accuracy doubles as its aggregation weight and Bias
// scales the member's weighted contribution.
type ModelDescriptor struct {
	Name     string  `yaml:"name" json:"name"`
	Kind     string  `yaml:"kind,omitempty" json:"kind,omitempty"`
	Accuracy float64 `yaml:"accuracy" json:"accuracy"`
	Bias     float64 `yaml:"bias" json:"bias"`
}

// Config is the immutable table set shared by scoring and attribution. Build it once at startup.
type Config struct {
	Features              []string                  `yaml:"features" json:"features"`
	Weights               map[string]float64        `yaml:"weights" json:"weights"`
	Ranges                map[string]features.Range `yaml:"ranges,omitempty" json:"ranges,omitempty"`
	Models                []ModelDescriptor         `yaml:"models" json:"models"`
	Baseline              float64                   `yaml:"baseline" json:"baseline"`
	NoiseSigma            float64                   `yaml:"noise_sigma" json:"noise_sigma"`
	AttributionNoiseSigma float64                   `yaml:"attribution_noise_sigma" json:"attribution_noise_sigma"`
	PrimaryFeature        string                    `yaml:"primary_feature" json:"primary_feature"`
	MaxAmplification      float64                   `yaml:"max_amplification" json:"max_amplification"`
}

// DefaultConfig returns the clinical prior tables and the four-member ensemble.
func DefaultConfig() Config {
	return Config{
		Features: features.Names(),
		Weights: map[string]float64{
			features.CognitiveHealthScore:    0.25,
			features.SyntacticComplexity:     0.18,
			features.LexicalDiversity:        0.15,
			features.InformationDensity:      0.12,
			features.HesitationRatio:         -0.10,
			features.VocabularySize:          0.08,
			features.TypeTokenRatio:          0.06,
			features.ComplexWordRatio:        0.04,
			features.AverageWordLength:       0.03,
			features.AverageWordsPerSentence: 0.02,
			features.WordCount:               0.02,
			features.SentenceCount:           0.01,
		},
		Models: []ModelDescriptor{
			{Name: "random_forest", Kind: KindWeightedLinear, Accuracy: 0.89, Bias: 1.05},
			{Name: "gradient_boosting", Kind: KindWeightedLinear, Accuracy: 0.91, Bias: 0.98},
			{Name: "neural_network", Kind: KindWeightedLinear, Accuracy: 0.87, Bias: 1.02},
			{Name: "svm", Kind: KindWeightedLinear, Accuracy: 0.85, Bias: 0.96},
		},
		Baseline:              0.5,
		NoiseSigma:            0.02,
		AttributionNoiseSigma: 0.01,
		PrimaryFeature:        features.CognitiveHealthScore,
		MaxAmplification:      50,
	}
}

// LoadConfig reads a YAML table file on top of DefaultConfig and validates the result.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read engine config: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("unmarshal engine config: %w", err)
	}
	cfg = merge(cfg, file)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig mirrors Config with pointer scalars so an explicit zero in the file is kept apart
// from an omitted key.
type fileConfig struct {
	Features              []string                  `yaml:"features"`
	Weights               map[string]float64        `yaml:"weights"`
	Ranges                map[string]features.Range `yaml:"ranges"`
	Models                []ModelDescriptor         `yaml:"models"`
	Baseline              *float64                  `yaml:"baseline"`
	NoiseSigma            *float64                  `yaml:"noise_sigma"`
	AttributionNoiseSigma *float64                  `yaml:"attribution_noise_sigma"`
	PrimaryFeature        *string                   `yaml:"primary_feature"`
	MaxAmplification      *float64                  `yaml:"max_amplification"`
}

func merge(base Config, override fileConfig) Config {
	if len(override.Features) > 0 {
		base.Features = override.Features
	}
	if len(override.Weights) > 0 {
		base.Weights = override.Weights
	}
	if len(override.Ranges) > 0 {
		base.Ranges = override.Ranges
	}
	if len(override.Models) > 0 {
		base.Models = override.Models
	}
	if override.Baseline != nil {
		base.Baseline = *override.Baseline
	}
	if override.NoiseSigma != nil {
		base.NoiseSigma = *override.NoiseSigma
	}
	if override.AttributionNoiseSigma != nil {
		base.AttributionNoiseSigma = *override.AttributionNoiseSigma
	}
	if override.PrimaryFeature != nil {
		base.PrimaryFeature = *override.PrimaryFeature
	}
	if override.MaxAmplification != nil {
		base.MaxAmplification = *override.MaxAmplification
	}
	return base
}

// Validate reports every malformed entry in the tables.
func (c Config) Validate() error {
	var errs []error
	if len(c.Features) == 0 {
		errs = append(errs, errors.New("feature enumeration is empty"))
	}
	known := make(map[string]struct{}, len(c.Features))
	for _, name := range c.Features {
		if _, dup := known[name]; dup {
			errs = append(errs, fmt.Errorf("duplicate feature %q", name))
		}
		known[name] = struct{}{}
	}
	for _, name := range sortedKeys(c.Weights) {
		w := c.Weights[name]
		if _, ok := known[name]; !ok {
			errs = append(errs, fmt.Errorf("weight for unknown feature %q", name))
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			errs = append(errs, fmt.Errorf("%w: %s=%v", ErrMalformedWeights, name, w))
		}
	}
	for name, r := range c.Ranges {
		if !r.Valid() {
			errs = append(errs, fmt.Errorf("invalid range for %q: [%v, %v]", name, r.Min, r.Max))
		}
	}
	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, errors.New("model name required"))
		}
		if _, dup := seen[m.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate model %q", m.Name))
		}
		seen[m.Name] = struct{}{}
		if !(m.Accuracy > 0 && m.Accuracy <= 1) {
			errs = append(errs, fmt.Errorf("model %q: accuracy %v outside (0,1]", m.Name, m.Accuracy))
		}
		if math.IsNaN(m.Bias) || math.IsInf(m.Bias, 0) {
			errs = append(errs, fmt.Errorf("model %q: bias is not finite", m.Name))
		}
		switch m.Kind {
		case "", KindWeightedLinear, KindRuleBased:
		default:
			errs = append(errs, fmt.Errorf("model %q: unknown kind %q", m.Name, m.Kind))
		}
	}
	if c.Baseline < 0 || c.Baseline > 1 || math.IsNaN(c.Baseline) {
		errs = append(errs, fmt.Errorf("baseline %v outside [0,1]", c.Baseline))
	}
	if c.NoiseSigma < 0 || c.AttributionNoiseSigma < 0 {
		errs = append(errs, errors.New("noise sigma must not be negative"))
	}
	if c.PrimaryFeature != "" {
		if _, ok := known[c.PrimaryFeature]; !ok {
			errs = append(errs, fmt.Errorf("primary feature %q is not enumerated", c.PrimaryFeature))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so callers cannot mutate shared tables.
func (c Config) Clone() Config {
	out := c
	out.Features = append([]string(nil), c.Features...)
	out.Models = append([]ModelDescriptor(nil), c.Models...)
	out.Weights = make(map[string]float64, len(c.Weights))
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	if c.Ranges != nil {
		out.Ranges = make(map[string]features.Range, len(c.Ranges))
		for k, v := range c.Ranges {
			out.Ranges[k] = v
		}
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
