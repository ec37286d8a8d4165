// Package cmd provides CLI commands for the formation2video tool.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/formation2video/internal/config"
	"github.com/ivlev/formation2video/internal/style"
	"github.com/ivlev/formation2video/internal/system"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:     "formation2video",
	Short:   "Animate dance formation payloads into video",
	Version: Version,
	Long: `formation2video replays the figures of an FDML export through the
formation state machine and renders the result as an MP4 diagram.

Supported formations: circle, line, twoLinesFacing.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: persistentPreRun,
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupRender  = "render"
	GroupInspect = "inspect"
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupRender, Title: "Rendering:"},
		&cobra.Group{ID: GroupInspect, Title: "Inspection:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupInspect)
	rootCmd.SetCompletionCommandGroupID(GroupInspect)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Overlay debug info and print verbose output")
}

// persistentPreRun checks the config file early so every subcommand fails
// the same way on a bad path.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	return nil
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := IsSilentExit(err); ok {
			return code
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
		return 1
	}
	return 0
}

// SilentExitError reports a status through the exit code only. Used by
// commands like lint whose findings are already printed.
type SilentExitError struct {
	Code int
}

func (e *SilentExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

func NewSilentExit(code int) error {
	return &SilentExitError{Code: code}
}

// IsSilentExit extracts the exit code of a SilentExitError.
func IsSilentExit(err error) (int, bool) {
	var se *SilentExitError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// loadConfig builds the configuration in layers: defaults, the --config
// file, FORMATION2VIDEO_* variables and finally the flags the user set.
// detect is the encoder probe, system.GetBestH264Encoder outside tests.
func loadConfig(cmd *cobra.Command, flags *renderFlags, detect func() (string, string)) (*config.Config, error) {
	cfg := config.Default(system.RecommendedWorkers())
	if configPath != "" {
		if err := config.LoadFile(cfg, configPath); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if flags != nil {
		flags.apply(cmd, cfg)
	}
	if debugMode {
		cfg.Debug = true
	}
	if err := cfg.ApplyPreset(cfg.Preset); err != nil {
		return nil, err
	}
	if detect != nil {
		cfg.ResolveEncoder(detect)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BuildVersion = Version
	return cfg, nil
}
