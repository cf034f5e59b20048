package features

import "math"

// Range describes the expected raw span of a measurement before it is mapped into [0,1].
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Valid reports whether the range can be used for rescaling.
func (r Range) Valid() bool {
	return isFinite(r.Min) && isFinite(r.Max) && r.Max > r.Min
}

// Vector is a complete, bounded feature vector. Every enumerated name carries a value in [0,1].
type Vector struct {
	names   []string
	values  map[string]float64
	present int
}

// Names returns the vector's feature names in order.
func (v Vector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Get returns the normalized value for name.
func (v Vector) Get(name string) (float64, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Values returns a copy of the name to value mapping.
func (v Vector) Values() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Len is the number of enumerated features.
func (v Vector) Len() int { return len(v.names) }

// Present counts the raw measurements that were supplied and finite.
func (v Vector) Present() int { return v.present }

// Completeness is Present divided by Len, or 0 for an empty enumeration.
func (v Vector) Completeness() float64 {
	if len(v.names) == 0 {
		return 0
	}
	return float64(v.present) / float64(len(v.names))
}

// Normalizer fills and bounds raw measurements against a fixed enumeration.
type Normalizer struct {
	names  []string
	ranges map[string]Range
}

// NewNormalizer builds a normalizer for names. Ranges are optional; invalid ones are ignored.
func NewNormalizer(names []string, ranges map[string]Range) *Normalizer {
	n := &Normalizer{
		names:  append([]string(nil), names...),
		ranges: make(map[string]Range, len(ranges)),
	}
	for name, r := range ranges {
		if r.Valid() {
			n.ranges[name] = r
		}
	}
	return n
}

// Normalize maps raw into a complete Vector. Missing or non-finite entries become Neutral;
// everything else is rescaled (when a range is configured) and clamped to [0,1].
func (n *Normalizer) Normalize(raw map[string]float64) Vector {
	vec := Vector{
		names:  append([]string(nil), n.names...),
		values: make(map[string]float64, len(n.names)),
	}
	for _, name := range n.names {
		val, ok := raw[name]
		val, ok = n.Value(name, val, ok)
		if ok {
			vec.present++
		}
		vec.values[name] = val
	}
	return vec
}

// Value normalizes a single raw measurement the same way Normalize does. It reports false for a
// missing or non-finite raw value.
func (n *Normalizer) Value(name string, raw float64, ok bool) (float64, bool) {
	if !ok || !isFinite(raw) {
		return Neutral, false
	}
	if r, found := n.ranges[name]; found {
		raw = (raw - r.Min) / (r.Max - r.Min)
	}
	return Clamp01(raw), true
}

// NewVector builds a vector directly from already-normalized values, clamping each one.
// Names absent from values are filled with Neutral and not counted as present.
func NewVector(names []string, values map[string]float64) Vector {
	return NewNormalizer(names, nil).Normalize(values)
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
