package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func TestTerminalReporter(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var out, prog bytes.Buffer
	r := NewTerminalReporterWithWriters(&out, &prog)
	r.Started(RunSummary{Input: "in.yuv", Width: 1920, Height: 1080, BitDepth: 10, Frames: 1200, BlockSize: 16, Lambda: 498712})
	r.FrameDone(FrameSummary{Index: 0, POC: 1, ModeCounts: [3]int{10, 0, 2}, MeanAbsMV: 6, TotalCost: 1234567})
	r.Completed(Outcome{Frames: 1, Blocks: 12, Evaluations: 54321, Elapsed: time.Second, OutputPath: "out.gmef"})
	r.Warning("careful")

	got := out.String()
	for _, want := range []string{
		"1920x1080, 10-bit",
		"1,200",
		"498,712",
		"cost 1,234,567",
		"54,321",
		"Saved to out.gmef",
		"WARN: careful",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
	if prog.Len() != 0 {
		t.Errorf("progress written to a non-terminal: %q", prog.String())
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)
	r.now = func() time.Time { return time.Unix(100, 0) }
	var rep Reporter = Composite{r, NullReporter{}}
	rep.Started(RunSummary{Width: 64, Height: 32})
	rep.FrameDone(FrameSummary{Index: 3, ModeCounts: [3]int{1, 2, 3}})
	rep.Completed(Outcome{Frames: 4})
	rep.Warning("w")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantTypes := []string{"started", "frame", "completed", "warning"}
	if len(lines) != len(wantTypes) {
		t.Fatalf("%d events, want %d", len(lines), len(wantTypes))
	}
	for i, line := range lines {
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev["type"] != wantTypes[i] || ev["timestamp"] != float64(100) {
			t.Errorf("event %d = %v", i, ev)
		}
	}
}
