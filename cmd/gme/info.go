package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/deepteams/motion/internal/field"
	"github.com/deepteams/motion/internal/logging"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <fields.gmef>",
		Short: "Summarise a motion-field file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			logging.Global().Debug("reading motion fields", "path", args[0])
			if err := printInfo(cmd.OutOrStdout(), in); err != nil {
				return fmt.Errorf("info: %w", err)
			}
			return nil
		},
	}
}

// printInfo writes one line per field and the file totals.
func printInfo(w io.Writer, r io.Reader) error {
	fr, err := field.NewReader(r)
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.English)
	var (
		frames int
		total  field.Stats
		evals  uint64
	)
	for {
		f, err := fr.ReadField()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if frames == 0 {
			fmt.Fprintf(w, "Size:   %dx%d, %dx%d blocks\n", f.Width, f.Height, f.BlockSize, f.BlockSize)
			fmt.Fprintf(w, "%6s %7s %7s %7s %7s %7s %8s %14s\n", "poc", "blocks", "L0", "L1", "Bi", "zero", "|mv|", "cost")
		}
		s := f.Stats()
		p.Fprintf(w, "%6d %7d %7d %7d %7d %7d %8.2f %14d\n",
			f.POC, s.Blocks, s.Modes[0], s.Modes[1], s.Modes[2], s.ZeroBlocks, s.MeanAbsMV/4, s.TotalCost)

		frames++
		total.Blocks += s.Blocks
		for i := range total.Modes {
			total.Modes[i] += s.Modes[i]
		}
		total.ZeroBlocks += s.ZeroBlocks
		total.TotalCost += s.TotalCost
		evals += f.Evaluations
	}
	p.Fprintf(w, "Frames: %d\n", frames)
	if frames > 0 {
		p.Fprintf(w, "Blocks: %d (L0 %d, L1 %d, Bi %d, zero %d)\n",
			total.Blocks, total.Modes[0], total.Modes[1], total.Modes[2], total.ZeroBlocks)
		p.Fprintf(w, "Cost:   %d\n", total.TotalCost)
		p.Fprintf(w, "Evaluations: %d\n", evals)
	}
	return nil
}
