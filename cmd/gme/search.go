package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepteams/motion"
	"github.com/deepteams/motion/internal/dsp"
	"github.com/deepteams/motion/internal/field"
	"github.com/deepteams/motion/internal/logging"
	"github.com/deepteams/motion/internal/me"
	"github.com/deepteams/motion/internal/picture"
	"github.com/deepteams/motion/internal/reporter"
	"github.com/deepteams/motion/internal/yuvio"
)

// searchArgs holds the parsed flags of the search command.
type searchArgs struct {
	output    string
	size      string
	bitDepth  int
	chroma    string
	frames    int
	preset    string
	precision string
	metric    string
	searchRng int
	qp        int
	lambda    uint32
	blockSize int
	workers   int
	backend   string
	refs      int
	bi        bool
	json      bool
	events    string
	verbose   bool
	quiet     bool
}

func newSearchCmd() *cobra.Command {
	var sa searchArgs
	cmd := &cobra.Command{
		Use:   "search [options] <input.yuv | image...>",
		Short: "Estimate motion of a raw YUV or image sequence",
		Long: `Estimate block motion of every frame against the frames before it.

A single input ending in .yuv is read as a raw planar sequence and needs
--size. Otherwise every input is a still image (PNG, BMP, TIFF or WebP)
and the images form the sequence in the order given. Picture dimensions
must be multiples of 8.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, &sa, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&sa.output, "output", "o", "", "motion-field output file")
	f.StringVarP(&sa.size, "size", "s", "", "frame size WxH of raw input")
	f.IntVar(&sa.bitDepth, "bit-depth", 8, "sample bit depth 8-12")
	f.StringVar(&sa.chroma, "chroma", "420", "chroma format of raw input: 420 or 400")
	f.IntVarP(&sa.frames, "frames", "n", 0, "stop after this many frames (0 = all)")
	f.StringVar(&sa.preset, "preset", "medium", "search preset: fast, medium or slow")
	f.StringVar(&sa.precision, "precision", "", "vector precision: integer, half or quarter (default from preset)")
	f.StringVar(&sa.metric, "metric", "", "distortion metric: sad or satd (default from preset)")
	f.IntVar(&sa.searchRng, "range", 0, "search range in samples (0 = from preset)")
	f.IntVar(&sa.qp, "qp", 32, "quantizer the motion lambda is derived from (0-63)")
	f.Uint32Var(&sa.lambda, "lambda", 0, "fixed-point motion lambda, overrides --qp")
	f.IntVarP(&sa.blockSize, "block", "b", 16, "block size 8-128")
	f.IntVarP(&sa.workers, "workers", "j", 0, "worker goroutines (0 = auto)")
	f.StringVar(&sa.backend, "backend", dsp.BackendAuto, "kernels: auto, scalar or unrolled")
	f.IntVar(&sa.refs, "refs", 1, "previous frames in reference list 0 (1-16)")
	f.BoolVar(&sa.bi, "bi", false, "use the next frame as list 1 reference and refine bi-prediction")
	f.BoolVar(&sa.json, "json", false, "report progress as JSON lines")
	f.StringVar(&sa.events, "events", "", "also write JSON progress events to this file")
	f.BoolVarP(&sa.verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVarP(&sa.quiet, "quiet", "q", false, "disable logging and progress output")
	return cmd
}

// buildOptions turns the flags into estimation options.
func buildOptions(cmd *cobra.Command, sa *searchArgs) (*motion.Options, error) {
	p, err := me.ParsePreset(strings.ToLower(sa.preset))
	if err != nil {
		return nil, err
	}
	opts := motion.OptionsForPreset(p)
	if sa.precision != "" {
		if opts.Search.Precision, err = me.ParsePrecision(strings.ToLower(sa.precision)); err != nil {
			return nil, err
		}
	}
	if sa.metric != "" {
		if opts.Search.Metric, err = parseMetric(sa.metric); err != nil {
			return nil, err
		}
	}
	if sa.searchRng != 0 {
		opts.Search.MaxSearchRange = sa.searchRng
	}
	if sa.refs < 1 || sa.refs > me.MaxRefs {
		return nil, fmt.Errorf("invalid --refs %d (must be 1-%d)", sa.refs, me.MaxRefs)
	}
	opts.QP = sa.qp
	if cmd.Flags().Changed("lambda") {
		opts.QP = -1
		opts.Lambda = sa.lambda
	}
	opts.BitDepth = sa.bitDepth
	opts.BlockSize = sa.blockSize
	opts.Workers = sa.workers
	opts.Backend = sa.backend
	opts.DisableBi = !sa.bi
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func parseMetric(s string) (dsp.Metric, error) {
	switch strings.ToLower(s) {
	case "sad":
		return dsp.MetricSAD, nil
	case "satd":
		return dsp.MetricSATD, nil
	}
	return 0, fmt.Errorf("unknown metric %q (must be sad or satd)", s)
}

func backendName(name string) string {
	be, err := dsp.BackendByName(name)
	if err != nil {
		return name
	}
	return be.Name
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid --size %q (must be WxH)", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid --size %q (must be WxH)", s)
	}
	return w, h, nil
}

func parseChroma(s string) (picture.ChromaFormat, error) {
	switch s {
	case "420", "4:2:0":
		return picture.Chroma420, nil
	case "400", "4:0:0", "gray":
		return picture.Chroma400, nil
	}
	return 0, fmt.Errorf("unknown chroma format %q (must be 420 or 400)", s)
}

// frameSource yields the pictures of a sequence in display order.
type frameSource interface {
	// Next returns the next picture, or io.EOF after the last one.
	Next() (*motion.Picture, error)
	Close() error
}

type yuvSource struct {
	in  io.ReadCloser
	r   *yuvio.Reader
	poc int
}

func openYUV(path string, f yuvio.Format) (*yuvSource, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	r, err := yuvio.NewReader(in, f)
	if err != nil {
		in.Close()
		return nil, err
	}
	return &yuvSource{in: in, r: r}, nil
}

func (s *yuvSource) Next() (*motion.Picture, error) {
	pic := s.r.Format().NewPicture()
	if err := s.r.ReadFrame(pic); err != nil {
		return nil, err
	}
	pic.POC = s.poc
	s.poc++
	return pic, nil
}

func (s *yuvSource) Close() error {
	s.r.Close()
	return s.in.Close()
}

type imageSource struct {
	paths    []string
	bitDepth int
	chroma   picture.ChromaFormat
	poc      int
}

func (s *imageSource) Next() (*motion.Picture, error) {
	if s.poc >= len(s.paths) {
		return nil, io.EOF
	}
	pic, err := yuvio.LoadImage(s.paths[s.poc], s.bitDepth, s.chroma)
	if err != nil {
		return nil, err
	}
	pic.POC = s.poc
	s.poc++
	return pic, nil
}

func (s *imageSource) Close() error { return nil }

func openSource(sa *searchArgs, args []string) (frameSource, *yuvio.Format, error) {
	chroma, err := parseChroma(sa.chroma)
	if err != nil {
		return nil, nil, err
	}
	if len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), ".yuv") || args[0] == "-" {
		if len(args) != 1 {
			return nil, nil, errors.New("raw input takes a single file")
		}
		if sa.size == "" {
			return nil, nil, errors.New("raw input needs --size WxH")
		}
		w, h, err := parseSize(sa.size)
		if err != nil {
			return nil, nil, err
		}
		f := yuvio.Format{Width: w, Height: h, BitDepth: sa.bitDepth, Chroma: chroma}
		src, err := openYUV(args[0], f)
		if err != nil {
			return nil, nil, err
		}
		return src, &f, nil
	}
	return &imageSource{paths: args, bitDepth: sa.bitDepth, chroma: chroma}, nil, nil
}

func runSearch(cmd *cobra.Command, sa *searchArgs, args []string) error {
	opts, err := buildOptions(cmd, sa)
	if err != nil {
		return err
	}
	log := logging.Init(cmd.ErrOrStderr(), sa.verbose, sa.quiet)
	opts.Logger = log

	src, format, err := openSource(sa, args)
	if err != nil {
		return err
	}
	defer src.Close()

	var rep reporter.Reporter
	switch {
	case sa.quiet:
		rep = reporter.NullReporter{}
	case sa.json:
		rep = reporter.NewJSONReporterWithWriter(cmd.OutOrStdout())
	default:
		rep = reporter.NewTerminalReporterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
	if sa.events != "" {
		ev, err := os.Create(sa.events)
		if err != nil {
			return err
		}
		defer ev.Close()
		rep = reporter.Composite{rep, reporter.NewJSONReporterWithWriter(ev)}
	}

	var fw *field.Writer
	var out *os.File
	if sa.output != "" {
		if out, err = os.Create(sa.output); err != nil {
			return err
		}
		defer out.Close()
		if fw, err = field.NewWriter(out); err != nil {
			return err
		}
	}

	first, err := src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("input has no frames")
		}
		return err
	}
	summary := reporter.RunSummary{
		Input:       strings.Join(args, " "),
		Output:      sa.output,
		Width:       first.Width(),
		Height:      first.Height(),
		BitDepth:    first.BitDepth(),
		BlockSize:   opts.BlockSize,
		Preset:      strings.ToLower(sa.preset),
		Precision:   opts.Search.Precision.String(),
		Metric:      opts.Search.Metric.String(),
		SearchRange: opts.Search.MaxSearchRange,
		Backend:     backendName(opts.Backend),
		Workers:     opts.ResolvedWorkers((first.Height() + opts.BlockSize - 1) / opts.BlockSize),
		Lambda:      opts.ResolvedLambda(),
	}
	if format == nil {
		summary.Frames = len(args)
	}
	if sa.frames > 0 && (summary.Frames == 0 || sa.frames < summary.Frames) {
		summary.Frames = sa.frames
	}
	rep.Started(summary)

	start := time.Now()
	var outcome reporter.Outcome
	var hist []*motion.Picture // previous frames, oldest first
	cur := first
	for index := 0; cur != nil; index++ {
		if sa.frames > 0 && index >= sa.frames {
			break
		}
		var next *motion.Picture
		if sa.bi || sa.frames == 0 || index+1 < sa.frames {
			if next, err = src.Next(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
		}
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		var refs [2]motion.RefList
		for i := len(hist) - 1; i >= 0; i-- {
			refs[0] = append(refs[0], hist[i])
		}
		if sa.bi && next != nil {
			refs[1] = motion.RefList{next}
		}

		if len(refs[0]) == 0 && len(refs[1]) == 0 {
			log.Debug("frame has no reference, skipped", "poc", cur.POC)
		} else {
			t0 := time.Now()
			f, err := motion.EstimateFrame(cmd.Context(), cur, refs, opts)
			if err != nil {
				return fmt.Errorf("frame %d: %w", index, err)
			}
			if fw != nil {
				if err := fw.WriteField(f); err != nil {
					return err
				}
			}
			st := f.Stats()
			rep.FrameDone(reporter.FrameSummary{
				Index:       index,
				POC:         f.POC,
				Blocks:      st.Blocks,
				ModeCounts:  st.Modes,
				ZeroBlocks:  st.ZeroBlocks,
				MeanAbsMV:   st.MeanAbsMV,
				TotalCost:   st.TotalCost,
				Evaluations: f.Evaluations,
				Elapsed:     time.Since(t0),
			})
			outcome.Frames++
			outcome.Blocks += uint64(st.Blocks)
			outcome.Evaluations += f.Evaluations
		}

		hist = append(hist, cur)
		if len(hist) > sa.refs {
			hist = hist[1:]
		}
		cur = next
	}

	if out != nil {
		if err := out.Close(); err != nil {
			return err
		}
		outcome.OutputPath = sa.output
	}
	if outcome.Frames == 0 {
		rep.Warning("no frame had a reference; nothing was estimated")
	}
	outcome.Elapsed = time.Since(start)
	rep.Completed(outcome)
	return nil
}
