package reporter

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TerminalReporter outputs human-friendly text. The progress bar is shown
// only when the progress writer is a terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	out      io.Writer
	progOut  io.Writer
	showBar  bool
	progress *progressbar.ProgressBar
	done     int
	printer  *message.Printer
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	bold     *color.Color
}

// NewTerminalReporter creates a reporter writing to stdout, with progress on
// stderr.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr)
}

// NewTerminalReporterWithWriters creates a reporter with custom writers.
func NewTerminalReporterWithWriters(out, progress io.Writer) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		progOut: progress,
		showBar: isTerminal(progress),
		printer: message.NewPrinter(language.English),
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		bold:    color.New(color.Bold),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printLabel prints a bold label with fixed width padding followed by a value.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	padded := fmt.Sprintf("%-*s", width, label)
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(padded), value)
}

func (r *TerminalReporter) Started(s RunSummary) {
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "INPUT")
	const w = 11
	r.printLabel(w, "File:", s.Input)
	r.printLabel(w, "Resolution:", fmt.Sprintf("%dx%d, %d-bit", s.Width, s.Height, s.BitDepth))
	if s.Frames > 0 {
		r.printLabel(w, "Frames:", r.printer.Sprintf("%d", s.Frames))
	}

	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "SEARCH")
	r.printLabel(w, "Preset:", s.Preset)
	r.printLabel(w, "Blocks:", fmt.Sprintf("%dx%d", s.BlockSize, s.BlockSize))
	r.printLabel(w, "Range:", fmt.Sprintf("±%d", s.SearchRange))
	r.printLabel(w, "Precision:", s.Precision)
	r.printLabel(w, "Metric:", s.Metric)
	r.printLabel(w, "Lambda:", r.printer.Sprintf("%d", s.Lambda))
	r.printLabel(w, "Backend:", fmt.Sprintf("%s, %d workers", s.Backend, s.Workers))
	if s.Output != "" {
		r.printLabel(w, "Output:", s.Output)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = 0
	if r.showBar && s.Frames > 0 {
		r.progress = progressbar.NewOptions64(
			int64(s.Frames),
			progressbar.OptionSetDescription(""),
			progressbar.OptionSetWidth(40),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWriter(r.progOut),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "Estimating [",
				BarEnd:        "]",
			}),
		)
	}
}

func (r *TerminalReporter) FrameDone(s FrameSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	if r.progress != nil {
		_ = r.progress.Set64(int64(r.done))
		r.progress.Describe(fmt.Sprintf("poc %d, |mv| %.1f", s.POC, s.MeanAbsMV/4))
		return
	}
	fmt.Fprintf(r.out, "  frame %4d  poc %4d  L0 %5d  L1 %5d  Bi %5d  |mv| %6.2f  cost %s\n",
		s.Index, s.POC, s.ModeCounts[0], s.ModeCounts[1], s.ModeCounts[2],
		s.MeanAbsMV/4, r.printer.Sprintf("%d", s.TotalCost))
}

func (r *TerminalReporter) Completed(o Outcome) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "RESULTS")
	const w = 12
	r.printLabel(w, "Frames:", r.printer.Sprintf("%d", o.Frames))
	r.printLabel(w, "Blocks:", r.printer.Sprintf("%d", o.Blocks))
	r.printLabel(w, "Evaluations:", r.printer.Sprintf("%d", o.Evaluations))
	fps := 0.0
	if o.Elapsed > 0 {
		fps = float64(o.Frames) / o.Elapsed.Seconds()
	}
	r.printLabel(w, "Time:", fmt.Sprintf("%s (%.1f fps)", o.Elapsed.Round(time.Millisecond), fps))
	if o.OutputPath != "" {
		fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(o.OutputPath))
	}
}

func (r *TerminalReporter) Warning(msg string) {
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", msg)
}
