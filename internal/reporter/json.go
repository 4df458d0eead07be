package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs one JSON object per event (NDJSON).
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

// NewJSONReporter creates a JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w, now: time.Now}
}

func (r *JSONReporter) write(v map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v["timestamp"] = r.now().Unix()
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Started(s RunSummary) {
	r.write(map[string]any{
		"type":         "started",
		"input":        s.Input,
		"output":       s.Output,
		"width":        s.Width,
		"height":       s.Height,
		"bit_depth":    s.BitDepth,
		"frames":       s.Frames,
		"block_size":   s.BlockSize,
		"preset":       s.Preset,
		"precision":    s.Precision,
		"metric":       s.Metric,
		"search_range": s.SearchRange,
		"backend":      s.Backend,
		"workers":      s.Workers,
		"lambda":       s.Lambda,
	})
}

func (r *JSONReporter) FrameDone(s FrameSummary) {
	r.write(map[string]any{
		"type":        "frame",
		"index":       s.Index,
		"poc":         s.POC,
		"blocks":      s.Blocks,
		"l0":          s.ModeCounts[0],
		"l1":          s.ModeCounts[1],
		"bi":          s.ModeCounts[2],
		"zero_blocks": s.ZeroBlocks,
		"mean_abs_mv": s.MeanAbsMV,
		"total_cost":  s.TotalCost,
		"evaluations": s.Evaluations,
		"elapsed_ms":  s.Elapsed.Milliseconds(),
	})
}

func (r *JSONReporter) Completed(o Outcome) {
	r.write(map[string]any{
		"type":        "completed",
		"frames":      o.Frames,
		"blocks":      o.Blocks,
		"evaluations": o.Evaluations,
		"elapsed_ms":  o.Elapsed.Milliseconds(),
		"output":      o.OutputPath,
	})
}

func (r *JSONReporter) Warning(msg string) {
	r.write(map[string]any{
		"type":    "warning",
		"message": msg,
	})
}
