package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ivlev/formation2video/internal/lint"
	"github.com/ivlev/formation2video/internal/source"
	"github.com/ivlev/formation2video/internal/style"
)

var lintChecker string

var lintTags = map[string]string{
	"schema":   "SCHEMA",
	"geometry": "GEO",
	"timing":   "TIMING",
}

var lintCmd = &cobra.Command{
	Use:     "lint <payload...>",
	GroupID: GroupInspect,
	Short:   "Check payloads for structural problems",
	Long: `Run the lint checkers over every dance of the given payload files or
directories. Each checker prints one verdict line per dance followed by its
issues. The exit code is 1 when any issue was found.

Checkers: schema, geometry, timing, or all.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVar(&lintChecker, "checker", "all", "Checker to run: geometry, timing, schema, all")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	checkers, err := lintCheckers(lintChecker)
	if err != nil {
		return err
	}

	failed := false
	for _, path := range args {
		src, err := source.NewPayloadSource(path, nil)
		if err != nil {
			return err
		}
		for i := 0; i < src.DanceCount(); i++ {
			if !lintDance(cmd.OutOrStdout(), src.Dance(i), checkers) {
				failed = true
			}
		}
		src.Close()
	}
	if failed {
		return NewSilentExit(1)
	}
	return nil
}

func lintCheckers(name string) ([]lint.Checker, error) {
	if name == "all" {
		return lint.All(), nil
	}
	c, err := lint.NewChecker(name)
	if err != nil {
		return nil, err
	}
	return []lint.Checker{c}, nil
}

// lintDance prints the verdicts for one dance and reports whether it is clean.
func lintDance(w io.Writer, d source.Dance, checkers []lint.Checker) bool {
	clean := true
	for _, c := range checkers {
		issues := c.Check(d.Payload)
		fmt.Fprintf(w, "%s %s\n", style.Verdict(lintTags[c.Name()], len(issues) == 0), d.Name)
		for _, is := range issues {
			fmt.Fprintf(w, "    %s %s\n", style.ArrowPrefix, is)
		}
		if len(issues) > 0 {
			clean = false
		}
	}
	return clean
}
