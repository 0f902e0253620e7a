// Package cli — history.go implements the "cicada history" command.
//
// Without arguments the most recent runs are listed newest first. With
// a run ID argument the full run record is shown, including per-step
// output and findings.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cicada/internal/history"
	"github.com/shinji-kodama/cicada/internal/model"
)

// historyFlags holds the flag values for the history command.
type historyFlags struct {
	historyDB string
	limit     int
}

// NewHistoryCommand creates the "history" cobra command.
func NewHistoryCommand() *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded in the local history database.

Without arguments, lists recent runs newest first. With a run ID,
shows the full record of that run.

Examples:
  cicada history
  cicada history --limit 5
  cicada history 6b9f1c2e-...`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.historyDB, "history-db", "", "History database file")
	cmd.Flags().IntVar(&flags.limit, "limit", 10, "Maximum number of runs to list")

	return cmd
}

func runHistory(flags *historyFlags, args []string) error {
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

	if len(args) == 1 {
		run, err := store.Get(args[0])
		if err != nil {
			return err
		}
		printHistoryRun(run)
		return nil
	}

	runs, err := store.List(flags.limit)
	if err != nil {
		return err
	}
	printHistoryList(runs)
	return nil
}

func printHistoryRun(run *model.RunResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(data))
		return
	}
	printRunText(run)
}

func printHistoryList(runs []*model.RunResult) {
	if IsJSONOutput() {
		type resultJSON struct {
			Runs []*model.RunResult `json:"runs"`
		}
		data, _ := json.MarshalIndent(resultJSON{Runs: runs}, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	fmt.Printf("%-36s %-20s %-16s %-8s %s\n",
		"ID", "PIPELINE", "EVENT", "STATUS", "STARTED")
	for _, run := range runs {
		fmt.Printf("%-36s %-20s %-16s %-8s %s\n",
			run.ID,
			run.Pipeline,
			run.Event,
			run.Status,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
}
