// Package cli — report.go implements the "cicada report" command.
//
// The report command converts the analyzer findings of a recorded run
// into a SARIF 2.1.0 document, the format code-review and security
// tooling ingests. Without a run ID the most recent run is used.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cicada/internal/history"
	"github.com/shinji-kodama/cicada/internal/model"
	"github.com/shinji-kodama/cicada/internal/report"
)

// reportFlags holds the flag values for the report command.
type reportFlags struct {
	historyDB string
	output    string
	tool      string
}

// NewReportCommand creates the "report" cobra command.
func NewReportCommand() *cobra.Command {
	flags := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Export a run's analyzer findings as SARIF",
		Long: `Export the analyzer findings recorded for a run as a SARIF 2.1.0
document. Without a run ID, the most recent recorded run is used.

The document goes to stdout unless --output names a file.

Examples:
  cicada report
  cicada report --output findings.sarif
  cicada report 6b9f1c2e-... --output findings.sarif`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.historyDB, "history-db", "", "History database file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the document to this file instead of stdout")
	cmd.Flags().StringVar(&flags.tool, "tool", "", "Tool name recorded in the document")

	return cmd
}

func runReport(flags *reportFlags, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := flags.historyDB
	if dbPath == "" {
		dbPath = cfg.HistoryDB
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := resolveRun(store, args)
	if err != nil {
		return err
	}

	toolName := flags.tool
	if toolName == "" {
		toolName = cfg.LintTool
	}
	if toolName == "" {
		toolName = "flake8"
	}

	findings := run.Findings()
	VerboseLog("Run %s has %d finding(s)", run.ID, len(findings))

	doc, err := report.FromFindings(toolName, findings)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to build SARIF document", err)
	}

	if flags.output != "" {
		if err := report.WriteFile(doc, flags.output); err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to write %s", flags.output), err)
		}
		VerboseLog("Wrote %s", flags.output)
		return nil
	}
	return report.Write(doc, os.Stdout)
}

// resolveRun picks the run named by args, or the most recent one.
func resolveRun(store *history.Store, args []string) (*model.RunResult, error) {
	if len(args) == 1 {
		return store.Get(args[0])
	}

	runs, err := store.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, model.NewCLIError(model.ExitHistoryError, "no recorded runs to report on")
	}
	return runs[0], nil
}
