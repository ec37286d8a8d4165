package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/formation2video/internal/source"
	"github.com/ivlev/formation2video/internal/style"
	"github.com/ivlev/formation2video/internal/trace"
)

var (
	traceOut    string
	traceIndex  int
	traceVerify bool
)

var traceCmd = &cobra.Command{
	Use:     "trace <payload>",
	GroupID: GroupInspect,
	Short:   "Print the replay trace summary and hash",
	Long: `Replay every dance of a payload file or directory and print one summary
line per dance: formation kind, counts, event outcomes and the trace hash.

--out stores the full trace of one dance. The format follows the extension:
.json or .yaml, optionally compressed with a trailing .zst.
--verify treats the argument as a stored trace and checks its hash.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceOut, "out", "", "Write the full trace (.json, .yaml, .json.zst, .yaml.zst)")
	traceCmd.Flags().IntVar(&traceIndex, "index", -1, "Only trace this dance (-1 = all)")
	traceCmd.Flags().BoolVar(&traceVerify, "verify", false, "Verify a stored trace instead of building one")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if traceVerify {
		doc, err := trace.Read(args[0])
		if err != nil {
			return err
		}
		if err := trace.Verify(doc); err != nil {
			fmt.Fprintf(out, "%s %s\n", style.Verdict("TRACE", false), args[0])
			return NewSilentExit(1)
		}
		fmt.Fprintf(out, "%s %s\n", style.Verdict("TRACE", true), doc.Summary())
		return nil
	}

	src, err := source.NewPayloadSource(args[0], nil)
	if err != nil {
		return err
	}
	defer src.Close()

	dances := make([]source.Dance, 0, src.DanceCount())
	for i := 0; i < src.DanceCount(); i++ {
		if traceIndex < 0 || traceIndex == i {
			dances = append(dances, src.Dance(i))
		}
	}
	if len(dances) == 0 {
		return fmt.Errorf("%s: dance index %d out of range", args[0], traceIndex)
	}
	if traceOut != "" && len(dances) > 1 {
		return fmt.Errorf("--out needs a single dance, %d found (use --index)", len(dances))
	}

	for _, d := range dances {
		doc, err := trace.Build(d.Name, d.Payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, doc.Summary())
		if traceOut != "" {
			if err := trace.Write(traceOut, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Трасса сохранена: %s\n", style.SuccessPrefix, traceOut)
		}
	}
	return nil
}
