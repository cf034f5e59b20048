package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"neuroaid/backend/internal/explain"
	"neuroaid/backend/internal/features"
	"neuroaid/backend/internal/render"
	"neuroaid/backend/internal/scoring"
	"neuroaid/backend/internal/util"
)

const fallbackConfidence = 0.4

// ErrInternal wraps unexpected failures caught by the fallback policy.
var ErrInternal = errors.New("internal engine failure")

// Engine scores and explains feature mappings against one immutable table set. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	cfg        scoring.Config
	normalizer *features.Normalizer
	ensemble   *scoring.Ensemble
	generator  *explain.Generator
	renderer   *render.Dispatcher
	now        func() time.Time
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithScorers replaces the ensemble built from the descriptor table.
func WithScorers(members ...scoring.Scorer) Option {
	return func(e *Engine) { e.ensemble = scoring.NewEnsemble(members...) }
}

// WithRenderer attaches the presentation hand-off used for explanationTypes.
func WithRenderer(d *render.Dispatcher) Option {
	return func(e *Engine) { e.renderer = d }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine from cfg. Structural problems are rejected; malformed weights or
// descriptors are tolerated and surface as degraded results at request time.
func New(cfg scoring.Config, opts ...Option) (*Engine, error) {
	if len(cfg.Features) == 0 {
		return nil, errors.New("engine config: feature enumeration is empty")
	}
	if cfg.Baseline < 0 || cfg.Baseline > 1 || math.IsNaN(cfg.Baseline) {
		return nil, fmt.Errorf("engine config: baseline %v outside [0,1]", cfg.Baseline)
	}
	if cfg.NoiseSigma < 0 || cfg.AttributionNoiseSigma < 0 {
		return nil, errors.New("engine config: noise sigma must not be negative")
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Warn("engine tables failed validation; affected models will be skipped")
	}

	e := &Engine{
		cfg:        cfg,
		normalizer: features.NewNormalizer(cfg.Features, cfg.Ranges),
		ensemble:   scoring.NewEnsemble(scoring.BuildScorers(cfg)...),
		generator:  explain.NewGenerator(cfg.Features, cfg.Weights, cfg.Baseline, cfg.AttributionNoiseSigma, cfg.MaxAmplification),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns a copy of the engine tables.
func (e *Engine) Config() scoring.Config {
	return e.cfg.Clone()
}

// Score runs normalize → ensemble → confidence → importance. It never fails: any stage failure
// produces a degraded response.
func (e *Engine) Score(req ScoreRequest) (res PredictionResult) {
	timer := util.StartTimer()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrInternal, r)
			logrus.WithError(err).Error("scoring pipeline panicked")
			res = e.fallbackPrediction(req.Features, err, timer)
		}
	}()

	vec := e.normalizer.Normalize(req.Features)
	ens := e.ensemble.Run(vec, newRand(req.Options.NoiseSeed))
	if ens.Degraded {
		logrus.WithFields(logrus.Fields{
			"models":   e.ensemble.Size(),
			"failures": len(ens.Failures),
		}).Warn("no ensemble member survived")
		return PredictionResult{
			RiskScore:         ens.Score,
			Confidence:        scoring.MinConfidence,
			FeatureImportance: scoring.PriorImportance(e.cfg.Weights),
			ModelPredictions:  map[string]float64{},
			ProcessingTime:    timer.ElapsedSeconds(),
			ModelType:         ModelFallback,
			FeaturesUsed:      vec.Present(),
			Timestamp:         e.timestamp(),
			Degraded:          true,
			Error:             scoring.ErrNoModels.Error(),
		}
	}

	confidence := scoring.Confidence(ens.Scores(), vec.Completeness())
	if !finite(ens.Score) || !finite(confidence) {
		return e.fallbackPrediction(req.Features, fmt.Errorf("%w: non-finite score", ErrInternal), timer)
	}
	return PredictionResult{
		RiskScore:         ens.Score,
		Confidence:        confidence,
		FeatureImportance: scoring.Importance(vec, e.cfg.Weights),
		ModelPredictions:  ens.PredictionMap(),
		ProcessingTime:    timer.ElapsedSeconds(),
		ModelType:         ModelEnsemble,
		FeaturesUsed:      vec.Present(),
		Timestamp:         e.timestamp(),
	}
}

// Explain attributes a risk score to the features. When the request carries no prediction the
// score is computed first with the same seed.
func (e *Engine) Explain(ctx context.Context, req ExplainRequest) (res AttributionResult) {
	timer := util.StartTimer()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrInternal, r)
			logrus.WithError(err).Error("attribution pipeline panicked")
			res = e.fallbackAttribution(err, timer)
		}
	}()

	source := "provided"
	var score float64
	if req.Prediction.RiskScore != nil {
		score = *req.Prediction.RiskScore
	} else {
		source = "computed"
		score = e.Score(ScoreRequest{Features: req.Features, Options: req.Options}).RiskScore
	}

	vec := e.normalizer.Normalize(req.Features)
	attr := e.generator.Attribute(vec, score, newRand(req.Options.NoiseSeed))

	res = AttributionResult{
		ShapValues:     attr.Contributions,
		BaseValue:      attr.Baseline,
		ExpectedValue:  attr.Baseline,
		RiskScore:      score,
		Total:          attr.Total,
		FeatureNames:   attr.Names,
		FeatureValues:  vec.Values(),
		ModelType:      ModelEnsemble,
		Visualizations: map[string]render.Status{},
		Degraded:       attr.Degraded,
		Metadata: AttributionMetadata{
			Backend:       explain.Backend,
			Timestamp:     e.timestamp(),
			FeatureCount:  vec.Len(),
			ScoreSource:   source,
			Amplification: attr.Amplification,
			Unstable:      attr.Unstable,
		},
	}
	if res.FeatureNames == nil {
		res.FeatureNames = []string{}
	}
	if attr.Degraded {
		res.ModelType = ModelFallback
		res.Error = errString(attr.Err)
		logrus.WithError(attr.Err).WithField("target", attr.Target).Warn("attribution degraded")
	}
	if attr.Unstable {
		logrus.WithFields(logrus.Fields{
			"amplification": attr.Amplification,
			"target":        attr.Target,
		}).Warn("attribution rescale amplified raw contributions")
	}

	if len(req.Options.ExplanationTypes) > 0 && !attr.Degraded && e.renderer.Enabled() {
		chart := render.Chart{
			Names:         attr.Names,
			Contributions: attr.Contributions,
			FeatureValues: res.FeatureValues,
			Weights:       e.cfg.Weights,
			Baseline:      attr.Baseline,
			Amplification: attr.Amplification,
		}
		res.Visualizations = e.renderer.Render(ctx, req.Options.ExplanationTypes, chart, req.Options.OutputPath)
	}
	res.ProcessingTime = timer.ElapsedSeconds()
	return res
}

// fallbackPrediction applies the single-feature rule to the raw payload.
func (e *Engine) fallbackPrediction(raw FeatureMap, cause error, timer util.Timer) PredictionResult {
	score := e.cfg.Baseline
	used := 0
	for _, name := range e.cfg.Features {
		if v, ok := raw[name]; ok && finite(v) {
			used++
		}
	}
	v, ok := raw[e.cfg.PrimaryFeature]
	if v, ok = e.normalizer.Value(e.cfg.PrimaryFeature, v, ok); ok {
		score = scoring.PrimaryBlend(v, e.cfg.Baseline)
	}
	return PredictionResult{
		RiskScore:         score,
		Confidence:        fallbackConfidence,
		FeatureImportance: scoring.PriorImportance(e.cfg.Weights),
		ModelPredictions:  map[string]float64{ModelFallback: score},
		ProcessingTime:    timer.ElapsedSeconds(),
		ModelType:         ModelFallback,
		FeaturesUsed:      used,
		Timestamp:         e.timestamp(),
		Degraded:          true,
		Error:             errString(cause),
	}
}

func (e *Engine) fallbackAttribution(cause error, timer util.Timer) AttributionResult {
	res := ErrorAttribution(cause, e.now())
	res.ModelType = ModelFallback
	res.BaseValue = e.cfg.Baseline
	res.ExpectedValue = e.cfg.Baseline
	res.RiskScore = e.cfg.Baseline
	res.Metadata.Backend = "fallback"
	res.ProcessingTime = timer.ElapsedSeconds()
	return res
}

func (e *Engine) timestamp() string {
	return e.now().Format(time.RFC3339Nano)
}

// newRand seeds per request; without a seed the noise is non-reproducible.
func newRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
