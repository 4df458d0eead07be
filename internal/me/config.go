package me

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/deepteams/motion/internal/dsp"
)

// Precision is the finest vector resolution the search refines to.
type Precision int

const (
	PrecisionInteger Precision = iota
	PrecisionHalf
	PrecisionQuarter
)

func (p Precision) String() string {
	switch p {
	case PrecisionInteger:
		return "integer"
	case PrecisionHalf:
		return "half"
	case PrecisionQuarter:
		return "quarter"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ParsePrecision converts "integer", "half" or "quarter" to a Precision.
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "integer", "int", "full":
		return PrecisionInteger, nil
	case "half":
		return PrecisionHalf, nil
	case "quarter", "qpel":
		return PrecisionQuarter, nil
	}
	return 0, fmt.Errorf("me: unknown precision %q", s)
}

// Preset selects a complexity tier.
type Preset int

const (
	PresetFast Preset = iota
	PresetMedium
	PresetSlow
)

func (p Preset) String() string {
	switch p {
	case PresetFast:
		return "fast"
	case PresetMedium:
		return "medium"
	case PresetSlow:
		return "slow"
	default:
		return fmt.Sprintf("Preset(%d)", int(p))
	}
}

// ParsePreset converts "fast", "medium" or "slow" to a Preset.
func ParsePreset(s string) (Preset, error) {
	switch s {
	case "fast":
		return PresetFast, nil
	case "medium", "":
		return PresetMedium, nil
	case "slow":
		return PresetSlow, nil
	}
	return 0, fmt.Errorf("me: unknown preset %q", s)
}

// SearchConfig controls which search stages run and how far they look.
// Ranges are in full samples.
type SearchConfig struct {
	// RasterEnabled allows the coarse grid sweep when the diamond search
	// ended on a large step.
	RasterEnabled bool
	// RefineEnabled allows repeated diamond passes around the best vector.
	RefineEnabled bool

	// MaxFirstSearchSteps is the number of consecutive non-improving diamond
	// passes that ends the first diamond search.
	MaxFirstSearchSteps int
	// MaxRefineSearchSteps is the same limit for refinement rounds.
	MaxRefineSearchSteps int

	MaxSearchRange int // uni-prediction range around the predictor
	BiSearchRange  int // bi-prediction range around the current vector
	BiIterations   int // alternations of the joint bi refinement

	RasterStep      int // minimum raster grid step
	RasterThreshold int // best diamond step above which the raster runs
	RefineThreshold int // best step above which refinement continues

	// SubpelRings is the half-sample search breadth: 1 searches the eight
	// half-sample neighbours, 2 adds the sixteen at twice the distance.
	SubpelRings int

	Precision Precision
	Metric    dsp.Metric
}

// DefaultSearchConfig returns the medium-complexity configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		RasterEnabled:        true,
		RefineEnabled:        true,
		MaxFirstSearchSteps:  3,
		MaxRefineSearchSteps: 2,
		MaxSearchRange:       64,
		BiSearchRange:        5,
		BiIterations:         4,
		RasterStep:           5,
		RasterThreshold:      5,
		RefineThreshold:      0,
		SubpelRings:          1,
		Precision:            PrecisionQuarter,
		Metric:               dsp.MetricSAD,
	}
}

// PresetConfig returns the configuration of a complexity tier.
func PresetConfig(p Preset) SearchConfig {
	cfg := DefaultSearchConfig()
	switch p {
	case PresetFast:
		cfg.RasterEnabled = false
		cfg.RefineEnabled = false
		cfg.MaxFirstSearchSteps = 2
		cfg.MaxSearchRange = 32
		cfg.BiIterations = 2
	case PresetSlow:
		cfg.MaxFirstSearchSteps = 5
		cfg.MaxSearchRange = 128
		cfg.SubpelRings = 2
		cfg.Metric = dsp.MetricSATD
	}
	return cfg
}

// ErrConfig is wrapped by every SearchConfig validation error.
var ErrConfig = errors.New("me: invalid search config")

// Validate reports the first out-of-range field.
func (c *SearchConfig) Validate() error {
	switch {
	case c.MaxSearchRange < 0 || c.MaxSearchRange > 1024:
		return fmt.Errorf("%w: MaxSearchRange %d (must be 0-1024)", ErrConfig, c.MaxSearchRange)
	case c.BiSearchRange < 0 || c.BiSearchRange > 16:
		return fmt.Errorf("%w: BiSearchRange %d (must be 0-16)", ErrConfig, c.BiSearchRange)
	case c.BiIterations < 1 || c.BiIterations > 8:
		return fmt.Errorf("%w: BiIterations %d (must be 1-8)", ErrConfig, c.BiIterations)
	case c.MaxFirstSearchSteps < 1 || c.MaxRefineSearchSteps < 1:
		return fmt.Errorf("%w: search steps %d/%d (must be >= 1)", ErrConfig, c.MaxFirstSearchSteps, c.MaxRefineSearchSteps)
	case c.RasterStep < 1:
		return fmt.Errorf("%w: RasterStep %d (must be >= 1)", ErrConfig, c.RasterStep)
	case c.RasterThreshold < 0 || c.RefineThreshold < 0:
		return fmt.Errorf("%w: thresholds %d/%d (must be >= 0)", ErrConfig, c.RasterThreshold, c.RefineThreshold)
	case c.SubpelRings < 1 || c.SubpelRings > 2:
		return fmt.Errorf("%w: SubpelRings %d (must be 1 or 2)", ErrConfig, c.SubpelRings)
	case c.Precision < PrecisionInteger || c.Precision > PrecisionQuarter:
		return fmt.Errorf("%w: %v", ErrConfig, c.Precision)
	case c.Metric != dsp.MetricSAD && c.Metric != dsp.MetricSATD:
		return fmt.Errorf("%w: %v", ErrConfig, c.Metric)
	}
	return nil
}

// maxRefineRounds bounds the refinement loop.
const maxRefineRounds = 4

// diamondEvaluations bounds the cost evaluations of one diamond search with
// the given local radius. Bi-prediction searches stop after the local phase.
func diamondEvaluations(cfg *SearchConfig, radius int, bi bool) int {
	n := (2*radius + 1) * (2*radius + 1)
	if bi {
		return n
	}
	for step := 4; step <= cfg.MaxSearchRange; step <<= 1 {
		if step <= 8 {
			n += len(diamond8)
		} else {
			n += len(diamond16)
		}
	}
	return n
}

func subpelEvaluations(cfg *SearchConfig) int {
	if cfg.Precision == PrecisionInteger {
		return len(square8)
	}
	n := len(halfRing1)
	if cfg.SubpelRings > 1 {
		n += len(halfRing2)
	}
	if cfg.Precision == PrecisionQuarter {
		n += len(quarter8)
	}
	return n
}

// MaxEvaluations bounds the cost evaluations of one uni-prediction search of
// a w x h block over numRefs references.
func MaxEvaluations(cfg *SearchConfig, w, h, numRefs int) int {
	perRef := 1 + diamondEvaluations(cfg, localRadius, false)
	if cfg.RasterEnabled {
		minStep := max(cfg.RasterStep, min(w, h)/2)
		// A step capped to half the window visits at most four columns.
		perAxis := max(2*cfg.MaxSearchRange/minStep+1, 4)
		perRef += perAxis * perAxis
		perRef += len(square8) * bits.Len(uint(minStep*numRefs))
	}
	if cfg.RefineEnabled {
		perRef += maxRefineRounds * diamondEvaluations(cfg, localRadius, false)
	}
	perRef += subpelEvaluations(cfg)
	return perRef * numRefs
}

// MaxBiEvaluations bounds the cost evaluations of one joint bi refinement
// with numRefs active references per list.
func MaxBiEvaluations(cfg *SearchConfig, numRefs [2]int) int {
	perRef := 1 + diamondEvaluations(cfg, cfg.BiSearchRange, true) + subpelEvaluations(cfg)
	return cfg.BiIterations * max(numRefs[0], numRefs[1]) * perRef
}
