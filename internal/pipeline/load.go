package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/shinji-kodama/cicada/internal/model"
)

// Load parses a single pipeline file. It fails on unreadable files and
// malformed YAML; schema problems beyond that are left to Validate so
// callers can report them all at once.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidPipeline,
			fmt.Sprintf("failed to read pipeline file %s", path), err)
	}

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidPipeline,
			fmt.Sprintf("failed to parse pipeline file %s", path), err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	p.Path = abs
	return &p, nil
}

// Discover returns the pipeline files under the given path, sorted by
// name. A file path is returned as-is; a directory is scanned
// (non-recursively) for .yml and .yaml files.
func Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitPipelineNotFound,
			fmt.Sprintf("pipeline path %s not found", path), err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitPipelineNotFound,
			fmt.Sprintf("failed to read pipeline directory %s", path), err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yml" || ext == ".yaml" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, model.NewCLIError(model.ExitPipelineNotFound,
			fmt.Sprintf("no pipeline files (*.yml, *.yaml) found in %s", path))
	}
	return files, nil
}

// LoadAll loads every pipeline file under the given path. Any load
// failure aborts the whole operation; validation problems do not.
func LoadAll(path string) ([]*Pipeline, error) {
	files, err := Discover(path)
	if err != nil {
		return nil, err
	}

	pipelines := make([]*Pipeline, 0, len(files))
	for _, file := range files {
		p, err := Load(file)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}
