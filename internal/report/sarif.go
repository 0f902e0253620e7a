// Package report converts recorded analyzer findings to SARIF 2.1.0,
// the interchange format code-review tooling ingests.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/shinji-kodama/cicada/internal/model"
)

// toolInformationURI identifies the analyzer family in the SARIF run.
// Findings come from whatever analyzer the pipeline configured; the
// rule IDs (E999, F821, ...) are the stable part.
const toolInformationURI = "https://flake8.pycqa.org"

// strictLevel assigns a SARIF severity to a rule code. The fatal
// categories of a strict pass (syntax errors, undefined names, invalid
// comparisons and assertions) map to "error"; everything else is
// advisory by construction.
func strictLevel(code string) string {
	for _, prefix := range []string{"E9", "F63", "F7", "F82"} {
		if len(code) >= len(prefix) && code[:len(prefix)] == prefix {
			return "error"
		}
	}
	return "warning"
}

// FromFindings builds a SARIF report with a single run holding the
// given findings. The tool name is whatever binary produced them.
func FromFindings(toolName string, findings []model.Finding) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolInformationURI)
	seenRules := make(map[string]bool)

	for _, f := range findings {
		if !seenRules[f.Code] {
			seenRules[f.Code] = true
			run.AddRule(f.Code).
				WithDescription(f.Message).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: strictLevel(f.Code),
				})
		}

		region := sarif.NewRegion().WithStartLine(f.Line)
		if f.Column > 0 {
			region = region.WithStartColumn(f.Column)
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Path)).
				WithRegion(region),
		)

		result := sarif.NewRuleResult(f.Code).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(strictLevel(f.Code)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}

	report.AddRun(run)
	return report, nil
}

// WriteFile renders the report as indented JSON at path.
func WriteFile(report *sarif.Report, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create SARIF file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return report.PrettyWrite(file)
}

// Write renders the report as indented JSON to w.
func Write(report *sarif.Report, w io.Writer) error {
	return report.PrettyWrite(w)
}
