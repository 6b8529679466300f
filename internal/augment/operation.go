package augment

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"sort"
)

// Spec describes one augmentation step as it appears in a pipeline config:
// an operation type, the chance it fires on a sample, and its type-specific
// parameters.
type Spec struct {
	Type        string  `json:"type" yaml:"type" toml:"type"`
	Probability float64 `json:"probability" yaml:"probability" toml:"probability"`
	Params      Params  `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// Params holds the type-specific parameters of a Spec, keyed by name.
type Params map[string]any

// Transform produces the augmented version of img. Implementations must not
// modify img.
type Transform func(img image.Image, rng *rand.Rand) image.Image

// Operation is a validated, ready-to-apply augmentation step.
type Operation interface {
	Name() string
	Probability() float64
	Apply(img image.Image, rng *rand.Rand) image.Image
}

type operation struct {
	name        string
	probability float64
	transform   Transform
}

func (o *operation) Name() string         { return o.name }
func (o *operation) Probability() float64 { return o.probability }

func (o *operation) Apply(img image.Image, rng *rand.Rand) image.Image {
	return o.transform(img, rng)
}

// Build validates spec against its registered kind and returns the
// corresponding Operation. Any violation is reported as a *ConfigurationError.
func Build(spec Spec) (Operation, error) {
	kind, ok := registry[spec.Type]
	if !ok {
		if spec.Type == "" {
			return nil, &ConfigurationError{Field: "type", Message: "is required"}
		}
		return nil, &ConfigurationError{Kind: spec.Type, Field: "type", Message: "unknown operation type"}
	}
	p := spec.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, &ConfigurationError{
			Kind:    spec.Type,
			Field:   "probability",
			Message: fmt.Sprintf("must be in [0, 1], got %g", p),
		}
	}

	r := &paramReader{kind: spec.Type, params: spec.Params, used: map[string]bool{}}
	transform := kind.build(r)
	if r.err != nil {
		return nil, r.err
	}
	if err := r.checkUnused(); err != nil {
		return nil, err
	}
	return &operation{name: spec.Type, probability: p, transform: transform}, nil
}

// paramReader extracts typed parameters from Params, keeping the first error.
type paramReader struct {
	kind   string
	params Params
	used   map[string]bool
	err    error
}

func (r *paramReader) fail(field, format string, args ...any) {
	if r.err == nil {
		r.err = &ConfigurationError{Kind: r.kind, Field: field, Message: fmt.Sprintf(format, args...)}
	}
}

func (r *paramReader) lookup(key string) (any, bool) {
	r.used[key] = true
	v, ok := r.params[key]
	return v, ok
}

func (r *paramReader) float(key string, def float64, required bool) float64 {
	v, ok := r.lookup(key)
	if !ok {
		if required {
			r.fail(key, "is required")
		}
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	r.fail(key, "must be a number, got %T", v)
	return def
}

// Float returns a required numeric parameter.
func (r *paramReader) Float(key string) float64 { return r.float(key, 0, true) }

// FloatOr returns an optional numeric parameter.
func (r *paramReader) FloatOr(key string, def float64) float64 { return r.float(key, def, false) }

func (r *paramReader) integer(key string, def int, required bool) int {
	f := r.float(key, float64(def), required)
	if f != math.Trunc(f) {
		r.fail(key, "must be an integer, got %g", f)
		return def
	}
	return int(f)
}

// Int returns a required integer parameter.
func (r *paramReader) Int(key string) int { return r.integer(key, 0, true) }

// IntOr returns an optional integer parameter.
func (r *paramReader) IntOr(key string, def int) int { return r.integer(key, def, false) }

// StringOr returns an optional string parameter.
func (r *paramReader) StringOr(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "must be a string, got %T", v)
		return def
	}
	return s
}

// BoolOr returns an optional boolean parameter.
func (r *paramReader) BoolOr(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, "must be a boolean, got %T", v)
		return def
	}
	return b
}

// Range checks a min/max factor pair: 0 < lo <= hi.
func (r *paramReader) Range(loKey, hiKey string) (lo, hi float64) {
	lo, hi = r.Float(loKey), r.Float(hiKey)
	switch {
	case lo <= 0:
		r.fail(loKey, "must be greater than 0, got %g", lo)
	case lo > hi:
		r.fail(loKey, "must not exceed %s (%g > %g)", hiKey, lo, hi)
	}
	return lo, hi
}

// Within checks lo <= v <= hi.
func (r *paramReader) Within(key string, v, lo, hi float64) {
	if v < lo || v > hi {
		r.fail(key, "must be in [%g, %g], got %g", lo, hi, v)
	}
}

// Positive checks v > 0.
func (r *paramReader) Positive(key string, v float64) {
	if v <= 0 {
		r.fail(key, "must be greater than 0, got %g", v)
	}
}

// OneOf checks that v is one of the allowed values.
func (r *paramReader) OneOf(key, v string, allowed ...string) {
	for _, a := range allowed {
		if v == a {
			return
		}
	}
	r.fail(key, "must be one of %v, got %q", allowed, v)
}

func (r *paramReader) checkUnused() error {
	var unknown []string
	for k := range r.params {
		if !r.used[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ConfigurationError{Kind: r.kind, Field: unknown[0], Message: "unknown parameter"}
}
