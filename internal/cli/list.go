// Package cli — list.go implements the "cicada list" command.
//
// The list command shows the pipelines under a path: their names,
// declared triggers, jobs, and the job execution order. It is a
// read-only view; nothing runs.
package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/cicada/internal/pipeline"
)

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [file|dir]",
		Short: "List pipelines, their triggers, and job order",
		Long: `List every pipeline under the given file or directory with its
declared triggers, jobs, and the order jobs would execute in.

Examples:
  cicada list
  cicada list ci/ --json`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(args)
		},
	}
}

// pipelineInfo is the output record for one pipeline.
type pipelineInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Triggers []string  `json:"triggers"`
	Jobs     []jobInfo `json:"jobs"`
	Order    []string  `json:"order,omitempty"`
}

// jobInfo is the output record for one job within a pipeline.
type jobInfo struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Needs []string `json:"needs,omitempty"`
	Steps int      `json:"steps"`
}

func runList(args []string) error {
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

	infos := make([]pipelineInfo, 0, len(pipelines))
	for _, p := range pipelines {
		info := pipelineInfo{
			Path:     p.Path,
			Name:     p.Name,
			Triggers: DescribeTriggers(p.On),
			Jobs:     make([]jobInfo, 0, len(p.Jobs)),
		}

		order, ordered := listingOrder(p.Jobs)
		if ordered {
			info.Order = order
		}

		for _, id := range order {
			job := p.Jobs[id]
			entry := jobInfo{ID: id, Name: id, Steps: len(job.Steps), Needs: []string(job.Needs)}
			if job.Name != "" {
				entry.Name = job.Name
			}
			info.Jobs = append(info.Jobs, entry)
		}
		infos = append(infos, info)
	}

	printPipelineInfos(infos)
	return nil
}

// listingOrder returns the ids jobs are listed in: execution order when
// one exists, sorted ids when the needs graph is cyclic (so output
// stays stable for invalid pipelines too). The boolean reports whether
// the ids are a real execution order.
func listingOrder(jobs map[string]*pipeline.Job) ([]string, bool) {
	order, err := pipeline.ExecutionOrder(jobs)
	if err == nil {
		return order, true
	}
	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, false
}

// DescribeTriggers renders a trigger block as human-readable strings,
// one per declared event, with branch filters inline.
//
// Exported for testing purposes (tested in list_test.go).
//
// Example:
//
//	push(main), pull_request, workflow_dispatch
func DescribeTriggers(t *pipeline.Triggers) []string {
	if t == nil {
		return []string{"workflow_dispatch (manual only)"}
	}

	var out []string
	if t.Push != nil {
		out = append(out, describeBranchEvent("push", t.Push))
	}
	if t.PullRequest != nil {
		out = append(out, describeBranchEvent("pull_request", t.PullRequest))
	}
	if t.Dispatch {
		out = append(out, "workflow_dispatch")
	}
	if len(out) == 0 {
		out = []string{"workflow_dispatch (manual only)"}
	}
	return out
}

func describeBranchEvent(name string, filter *pipeline.BranchFilter) string {
	if len(filter.Branches) == 0 {
		return name
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(filter.Branches, ","))
}

func printPipelineInfos(infos []pipelineInfo) {
	if IsJSONOutput() {
		type resultJSON struct {
			Pipelines []pipelineInfo `json:"pipelines"`
		}
		data, _ := json.MarshalIndent(resultJSON{Pipelines: infos}, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, info := range infos {
		fmt.Printf("%s (%s)\n", info.Name, info.Path)
		fmt.Printf("  on: %s\n", strings.Join(info.Triggers, ", "))
		for _, job := range info.Jobs {
			if len(job.Needs) > 0 {
				fmt.Printf("  job %s: %d step(s), needs %s\n",
					job.ID, job.Steps, strings.Join(job.Needs, ", "))
			} else {
				fmt.Printf("  job %s: %d step(s)\n", job.ID, job.Steps)
			}
		}
		if len(info.Order) > 1 {
			fmt.Printf("  order: %s\n", strings.Join(info.Order, " → "))
		}
	}
}
