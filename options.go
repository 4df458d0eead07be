package motion

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/me"
	"github.com/deepteams/motion/internal/picture"
)

// Preset selects a search complexity tier.
type Preset = me.Preset

const (
	PresetFast   = me.PresetFast
	PresetMedium = me.PresetMedium
	PresetSlow   = me.PresetSlow
)

// Precision is the finest vector resolution a search refines to.
type Precision = me.Precision

const (
	PrecisionInteger = me.PrecisionInteger
	PrecisionHalf    = me.PrecisionHalf
	PrecisionQuarter = me.PrecisionQuarter
)

// MaxWorkers bounds Options.Workers.
const MaxWorkers = 256

// Errors returned by validation and EstimateFrame. Each is wrapped with the
// offending value.
var (
	ErrBitDepth    = errors.New("motion: unsupported bit depth")
	ErrBlockSize   = errors.New("motion: unsupported block size")
	ErrNoReference = errors.New("motion: no reference picture")
	ErrFrameSize   = errors.New("motion: picture size mismatch")
)

// Options controls motion estimation.
type Options struct {
	// Search selects the search stages and ranges.
	Search SearchConfig

	// QP derives the motion lambda with LambdaFromQP (0-63, default 32).
	// A negative QP selects Lambda as given.
	QP int

	// Lambda is the fixed-point motion lambda (2^16 = 1.0). It is only used
	// when QP is negative.
	Lambda uint32

	// BitDepth is the sample bit depth of every picture (8-12, default 8).
	BitDepth int

	// BlockSize is the edge of the square blocks EstimateFrame searches.
	// A power of two from 8 to 128, default 16.
	BlockSize int

	// Workers is the number of goroutines EstimateFrame uses. Zero picks
	// min(GOMAXPROCS, 6).
	Workers int

	// Backend names the kernel set: "auto" (default), "scalar" or
	// "unrolled".
	Backend string

	// DisableBi skips the joint bi-prediction refinement even when both
	// reference lists are populated.
	DisableBi bool

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns the medium preset at QP 32, 8 bits.
func DefaultOptions() *Options {
	return &Options{
		Search:    me.DefaultSearchConfig(),
		QP:        32,
		BitDepth:  8,
		BlockSize: 16,
		Backend:   dsp.BackendAuto,
	}
}

// OptionsForPreset returns the default options with the search
// configuration of the given preset.
func OptionsForPreset(preset Preset) *Options {
	opts := DefaultOptions()
	opts.Search = me.PresetConfig(preset)
	return opts
}

// ResolvedLambda returns the motion lambda the options select.
func (o *Options) ResolvedLambda() uint32 {
	if o.QP < 0 {
		return o.Lambda
	}
	return LambdaFromQP(o.QP, o.BitDepth)
}

// ResolvedWorkers returns the number of goroutines EstimateFrame starts for
// a picture with the given number of block rows.
func (o *Options) ResolvedWorkers(rows int) int {
	n := o.Workers
	if n == 0 {
		n = min(runtime.GOMAXPROCS(0), defaultMaxWorkers)
	}
	return max(min(n, rows), 1)
}

// Validate returns an error describing the first invalid option, or nil.
func (o *Options) Validate() error {
	if o.BitDepth < dsp.MinBitDepth || o.BitDepth > dsp.MaxBitDepth {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrBitDepth, o.BitDepth, dsp.MinBitDepth, dsp.MaxBitDepth)
	}
	if o.BlockSize < 8 || o.BlockSize > picture.MaxCUSize || o.BlockSize&(o.BlockSize-1) != 0 {
		return fmt.Errorf("%w: %d (must be a power of two 8-%d)", ErrBlockSize, o.BlockSize, picture.MaxCUSize)
	}
	if o.QP > 63 {
		return fmt.Errorf("motion: invalid QP %d (must be 0-63 or negative for a fixed Lambda)", o.QP)
	}
	if o.Workers < 0 || o.Workers > MaxWorkers {
		return fmt.Errorf("motion: invalid Workers %d (must be 0-%d)", o.Workers, MaxWorkers)
	}
	if _, err := dsp.BackendByName(o.Backend); err != nil {
		return fmt.Errorf("motion: invalid Backend: %w", err)
	}
	if err := o.Search.Validate(); err != nil {
		return fmt.Errorf("motion: %w", err)
	}
	return nil
}
