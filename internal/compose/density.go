package compose

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Preset is a named density level.
type Preset string

const (
	Minimal  Preset = "minimal"
	Sparse   Preset = "sparse"
	Balanced Preset = "balanced"
	Detailed Preset = "detailed"
	Thorough Preset = "thorough"
)

var presetLevels = map[Preset]float64{
	Minimal:  0,
	Sparse:   0.25,
	Balanced: 0.5,
	Detailed: 0.75,
	Thorough: 1,
}

// Presets returns every preset from least to most dense.
func Presets() []Preset {
	return []Preset{Minimal, Sparse, Balanced, Detailed, Thorough}
}

// DensityValue is either a Preset or a Level.
type DensityValue interface {
	density() (float64, error)
}

// Level is an explicit density. Values outside [0, 1] are clamped.
type Level float64

func (l Level) density() (float64, error) {
	if math.IsNaN(float64(l)) {
		return 0, eris.New("compose: density is NaN")
	}
	return clamp01(float64(l)), nil
}

func (p Preset) density() (float64, error) {
	v, ok := presetLevels[p]
	if !ok {
		return 0, eris.Errorf("compose: unknown density preset %q", string(p))
	}
	return v, nil
}

// ResolveDensity maps a preset or level to a density in [0, 1].
func ResolveDensity(v DensityValue) (float64, error) {
	if v == nil {
		return 0, eris.New("compose: no density given")
	}
	return v.density()
}

// ParseDensity reads a preset name or a number, as given on the command line
// or in config.
func ParseDensity(s string) (DensityValue, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if _, ok := presetLevels[Preset(s)]; ok {
		return Preset(s), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		return Level(f), nil
	}
	return nil, eris.Errorf("compose: unknown density %q, want one of minimal, sparse, balanced, detailed, thorough or a number in [0, 1]", s)
}

// Adjustment is how a density shifts admission and compression.
type Adjustment struct {
	// ThresholdAdjust is added to the configured threshold. Positive at low
	// density, negative at high density.
	ThresholdAdjust float64
	// ForgetfulnessBoost is added to every source's base forgetfulness.
	ForgetfulnessBoost float64
}

// Adjustments maps a resolved density to its adjustment. Both fields are
// non-increasing in density.
func Adjustments(density float64) Adjustment {
	d := clamp01(density)
	return Adjustment{
		ThresholdAdjust:    (0.5 - d) * 0.3,
		ForgetfulnessBoost: (1 - d) * 0.3,
	}
}

// EffectiveThreshold is the relevance cutoff applied for threshold at density.
func EffectiveThreshold(threshold, density float64) float64 {
	return clamp01(threshold + Adjustments(density).ThresholdAdjust)
}

// RelevanceToForgetfulness is the base compression intensity for a source:
// the more relevant, the less is forgotten.
func RelevanceToForgetfulness(relevance float64) float64 {
	return clamp01(1 - relevance)
}

// Forgetfulness combines the relevance baseline with a density boost.
func Forgetfulness(relevance, boost float64) float64 {
	return clamp01(RelevanceToForgetfulness(relevance) + boost)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
