// Package reporter provides progress reporting for the motion estimation
// command line tool.
package reporter

import "time"

// RunSummary describes a run before the first frame is estimated.
type RunSummary struct {
	Input       string
	Output      string
	Width       int
	Height      int
	BitDepth    int
	Frames      int // 0 when unknown
	BlockSize   int
	Preset      string
	Precision   string
	Metric      string
	SearchRange int
	Backend     string
	Workers     int
	Lambda      uint32
}

// FrameSummary describes one estimated frame.
type FrameSummary struct {
	Index       int
	POC         int
	Blocks      int
	ModeCounts  [3]int // L0, L1, Bi
	ZeroBlocks  int
	MeanAbsMV   float64 // quarter samples
	TotalCost   uint64
	Evaluations uint64
	Elapsed     time.Duration
}

// Outcome describes a finished run.
type Outcome struct {
	Frames      int
	Blocks      uint64
	Evaluations uint64
	Elapsed     time.Duration
	OutputPath  string
}

// Reporter receives run events.
type Reporter interface {
	Started(summary RunSummary)
	FrameDone(summary FrameSummary)
	Completed(outcome Outcome)
	Warning(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Started(RunSummary)     {}
func (NullReporter) FrameDone(FrameSummary) {}
func (NullReporter) Completed(Outcome)      {}
func (NullReporter) Warning(string)         {}

// Composite fans out events to multiple reporters.
type Composite []Reporter

func (c Composite) Started(summary RunSummary) {
	for _, r := range c {
		r.Started(summary)
	}
}

func (c Composite) FrameDone(summary FrameSummary) {
	for _, r := range c {
		r.FrameDone(summary)
	}
}

func (c Composite) Completed(outcome Outcome) {
	for _, r := range c {
		r.Completed(outcome)
	}
}

func (c Composite) Warning(message string) {
	for _, r := range c {
		r.Warning(message)
	}
}
