package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ivlev/formation2video/internal/engine"
	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/source"
)

var planOut string

var planCmd = &cobra.Command{
	Use:     "plan <payload>",
	GroupID: GroupRender,
	Short:   "Write the director scenario without rendering",
	Long: `Plan the clip timing of every supported dance and write it as a YAML
scenario. Edit the keyframes and pass the file back with
"render --scenario <file> --effect scenario".

Without --out the scenario goes to scenarios/scenario_<timestamp>.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planOut, "out", "", "Scenario output path")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil, nil)
	if err != nil {
		return err
	}
	cfg.InputPath = args[0]
	cfg.GenerateScenario = true
	cfg.ScenarioOutput = planOut

	src, err := source.NewPayloadSource(cfg.InputPath, payload.NewCache())
	if err != nil {
		return err
	}
	defer src.Close()

	return engine.NewVideoProject(cfg, src, nil, nil).Run(cmd.Context())
}
