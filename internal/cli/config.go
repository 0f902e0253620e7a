// Package cli — config.go loads the optional .cicada.json tool config.
//
// The config file sets project-level defaults for flags every command
// would otherwise need repeated: the pipeline directory, the default
// trigger event, the history database path, and the analyzer and
// formatter binaries. The file may contain comments and trailing commas
// (JSONC); it is normalized to plain JSON before parsing.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/cicada/internal/model"
)

// DefaultConfigFile is the config filename looked up in the working
// directory when --config is not given.
const DefaultConfigFile = ".cicada.json"

// DefaultPipelineDir is where pipeline files are discovered when
// neither the command line nor the config names a path.
const DefaultPipelineDir = "ci"

// DefaultHistoryDB is the default run-history database path.
const DefaultHistoryDB = ".cicada-history.db"

// Config holds project-level defaults. Zero values mean "not set";
// applyDefaults fills them in after loading.
type Config struct {
	// PipelineDir is the default path given to run/validate/list/watch
	// when no positional argument is supplied.
	PipelineDir string `json:"pipelineDir"`

	// Event is the default trigger event for run and watch.
	Event string `json:"event"`

	// HistoryDB is the bbolt database file for recorded runs.
	HistoryDB string `json:"historyDb"`

	// LintTool and FormatTool override the analyzer and formatter
	// binaries for every lint and format-check step.
	LintTool   string `json:"lintTool"`
	FormatTool string `json:"formatTool"`
}

// LoadConfig reads the config file at path. A missing file at the
// default location is not an error; a missing file at an explicitly
// given path is.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	if cfg.Event != "" {
		if _, err := model.ParseEvent(cfg.Event); err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("invalid config file %s", path), err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PipelineDir == "" {
		c.PipelineDir = DefaultPipelineDir
	}
	if c.Event == "" {
		c.Event = model.EventDispatch.String()
	}
	if c.HistoryDB == "" {
		c.HistoryDB = DefaultHistoryDB
	}
}
