package render

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

const dependencePoints = 50

// DefaultOutputDir is used when a request names no output path.
const DefaultOutputDir = "./visualizations"

// SeriesRenderer writes chart-ready JSON series that the plotting layer turns into images.
type SeriesRenderer struct {
	now func() time.Time
}

// NewSeriesRenderer returns a renderer stamped with wall-clock time.
func NewSeriesRenderer() *SeriesRenderer {
	return &SeriesRenderer{now: time.Now}
}

// Point is one bar or step of a chart.
type Point struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	FeatureValue float64 `json:"featureValue"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
}

// Series is the file payload for one chart.
type Series struct {
	Kind       string    `json:"kind"`
	Baseline   float64   `json:"baseValue"`
	Prediction float64   `json:"prediction"`
	Points     []Point   `json:"points"`
	Curve      []Point   `json:"curve,omitempty"`
	Generated  time.Time `json:"generatedAt"`
}

// Render builds the series for kind and writes it under dir.
func (r *SeriesRenderer) Render(ctx context.Context, kind string, chart Chart, dir string) (string, error) {
	if dir == "" {
		dir = DefaultOutputDir
	}
	series, err := BuildSeries(kind, chart)
	if err != nil {
		return "", err
	}
	series.Generated = r.now().UTC()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	payload, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s series: %w", kind, err)
	}
	name := fmt.Sprintf("%s_%s_%s.json", kind, r.now().Format("20060102_150405"), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s series: %w", kind, err)
	}
	return name, nil
}

// BuildSeries lays out the points for one chart kind.
func BuildSeries(kind string, chart Chart) (Series, error) {
	s := Series{Kind: kind, Baseline: chart.Baseline}
	switch kind {
	case KindWaterfall, KindBar, KindSummary:
		s.Points = cumulative(sortedBy(chart, byMagnitude), chart.Baseline)
	case KindForce:
		s.Points = cumulative(sortedBy(chart, byValue), chart.Baseline)
	case KindDependence:
		points := sortedBy(chart, byMagnitude)
		if len(points) == 0 {
			return Series{}, fmt.Errorf("dependence chart needs at least one feature")
		}
		top := points[0]
		s.Points = []Point{top}
		s.Curve = dependenceCurve(top.Feature, chart)
	default:
		return Series{}, fmt.Errorf("unsupported chart kind %q", kind)
	}
	s.Prediction = chart.Baseline
	for _, v := range chart.Contributions {
		s.Prediction += v
	}
	return s, nil
}

type ordering int

const (
	byMagnitude ordering = iota
	byValue
)

func sortedBy(chart Chart, order ordering) []Point {
	points := make([]Point, 0, len(chart.Names))
	for _, name := range chart.Names {
		v, ok := chart.Contributions[name]
		if !ok {
			continue
		}
		points = append(points, Point{Feature: name, Value: v, FeatureValue: chart.FeatureValues[name]})
	}
	sort.SliceStable(points, func(i, j int) bool {
		if order == byValue {
			return points[i].Value > points[j].Value
		}
		return math.Abs(points[i].Value) > math.Abs(points[j].Value)
	})
	return points
}

func cumulative(points []Point, baseline float64) []Point {
	running := baseline
	for i := range points {
		points[i].Start = running
		running += points[i].Value
		points[i].End = running
	}
	return points
}

// dependenceCurve sweeps the feature across [0,1] through the same scaled linear response that
// produced its attribution.
func dependenceCurve(feature string, chart Chart) []Point {
	w := chart.Weights[feature]
	scale := chart.Amplification
	if scale == 0 {
		scale = 1
	}
	curve := make([]Point, dependencePoints)
	for i := range curve {
		x := float64(i) / float64(dependencePoints-1)
		curve[i] = Point{Feature: feature, FeatureValue: x, Value: (x - 0.5) * w * scale}
	}
	return curve
}
