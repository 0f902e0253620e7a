// Package cli — validate.go implements the "cicada validate" command.
//
// Validation loads every pipeline under the given path and reports all
// schema problems at once, without executing anything. This is the
// command to wire into an editor or pre-commit hook.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cicada/internal/model"
	"github.com/shinji-kodama/cicada/internal/pipeline"
)

// NewValidateCommand creates the "validate" cobra command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file|dir]",
		Short: "Validate pipeline files without running them",
		Long: `Load and validate every pipeline under the given file or directory.

All problems are collected and reported together, not just the first.
Nothing is executed.

Examples:
  cicada validate
  cicada validate ci/verify.yml --json`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
}

// pipelineReport is the per-file validation outcome for output.
type pipelineReport struct {
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

func runValidate(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.PipelineDir
	if len(args) == 1 {
		path = args[0]
	}

	pipelines, err := pipeline.LoadAll(path)
	if err != nil {
		return err
	}
	VerboseLog("Loaded %d pipeline file(s) from %s", len(pipelines), path)

	reports := make([]pipelineReport, 0, len(pipelines))
	invalid := 0
	for _, p := range pipelines {
		report := pipelineReport{Path: p.Path, Name: p.Name, Valid: true}
		for _, problem := range pipeline.Validate(p) {
			report.Valid = false
			report.Problems = append(report.Problems, problem.Error())
		}
		if !report.Valid {
			invalid++
		}
		reports = append(reports, report)
	}

	printValidateReports(reports)

	if invalid > 0 {
		return model.NewCLIError(model.ExitInvalidPipeline,
			fmt.Sprintf("%d of %d pipeline(s) invalid", invalid, len(reports)))
	}
	return nil
}

func printValidateReports(reports []pipelineReport) {
	if IsJSONOutput() {
		type resultJSON struct {
			Pipelines []pipelineReport `json:"pipelines"`
		}
		data, _ := json.MarshalIndent(resultJSON{Pipelines: reports}, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, report := range reports {
		if report.Valid {
			fmt.Printf("✓ %s (%s)\n", report.Path, report.Name)
			continue
		}
		fmt.Printf("✗ %s (%s)\n", report.Path, report.Name)
		for _, problem := range report.Problems {
			fmt.Printf("    %s\n", problem)
		}
	}
}
