package render

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Chart kinds understood by the presentation layer.
const (
	KindWaterfall  = "waterfall"
	KindBar        = "bar"
	KindForce      = "force"
	KindSummary    = "summary"
	KindDependence = "dependence"
)

// Kinds lists every supported chart kind.
func Kinds() []string {
	return []string{KindWaterfall, KindBar, KindForce, KindSummary, KindDependence}
}

// Supported reports whether kind is a known chart kind.
func Supported(kind string) bool {
	for _, k := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Chart carries an already-computed attribution to the presentation layer.
type Chart struct {
	Names         []string           `json:"featureNames"`
	Contributions map[string]float64 `json:"shapValues"`
	FeatureValues map[string]float64 `json:"featureValues"`
	Weights       map[string]float64 `json:"weights"`
	Baseline      float64            `json:"baseValue"`
	Amplification float64            `json:"amplification"`
}

// Renderer draws one chart kind into dir and returns the artifact's file name.
type Renderer interface {
	Render(ctx context.Context, kind string, chart Chart, dir string) (string, error)
}

// Status is the per-kind outcome reported back to the caller.
type Status struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
	Type     string `json:"type"`
}

// Dispatcher renders each requested kind independently; one kind failing never affects another.
type Dispatcher struct {
	renderer Renderer
	limit    int
}

// NewDispatcher wraps r. limit bounds concurrent renders; values below 1 mean one at a time.
func NewDispatcher(r Renderer, limit int) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{renderer: r, limit: limit}
}

// Enabled reports whether a renderer is attached.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.renderer != nil
}

// Render produces every known kind in kinds. Unknown kinds are skipped.
func (d *Dispatcher) Render(ctx context.Context, kinds []string, chart Chart, dir string) map[string]Status {
	out := make(map[string]Status)
	if !d.Enabled() {
		return out
	}
	wanted := dedupe(kinds)
	results := make([]Status, len(wanted))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, kind := range wanted {
		i, kind := i, kind
		g.Go(func() error {
			results[i] = d.renderOne(ctx, kind, chart, dir)
			return nil
		})
	}
	_ = g.Wait()

	for i, kind := range wanted {
		out[kind] = results[i]
	}
	return out
}

func (d *Dispatcher) renderOne(ctx context.Context, kind string, chart Chart, dir string) (st Status) {
	st = Status{Type: kind}
	defer func() {
		if r := recover(); r != nil {
			st = Status{Status: "failed", Error: fmt.Sprintf("renderer panicked: %v", r), Type: kind}
		}
		if st.Status == "failed" {
			logrus.WithField("kind", kind).WithField("error", st.Error).Warn("chart rendering failed")
		}
	}()
	if err := ctx.Err(); err != nil {
		return Status{Status: "failed", Error: err.Error(), Type: kind}
	}
	name, err := d.renderer.Render(ctx, kind, chart, dir)
	if err != nil {
		return Status{Status: "failed", Error: err.Error(), Type: kind}
	}
	return Status{Status: "generated", Filename: name, Type: kind}
}

func dedupe(kinds []string) []string {
	seen := make(map[string]struct{}, len(kinds))
	var out []string
	for _, k := range kinds {
		if !Supported(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
