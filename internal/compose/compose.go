package compose

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a compose file held as raw bytes plus its source path.
// Parsing is deferred until after interpolation, because variable
// references may appear anywhere in the document.
type Definition struct {
	// Path is the file the definition was read from.
	Path string

	// Raw is the unmodified file content.
	Raw []byte
}

// Load reads a compose definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", path, err)
	}
	return &Definition{Path: path, Raw: data}, nil
}

// CheckRequired verifies that every variable the definition references
// without a default can be resolved by the lookup. All missing names
// are reported together. This is stricter than the compose tool's own
// warn-and-substitute-empty behavior for bare references: a validation
// run exists to catch exactly this class of mistake, so an unresolved
// reference is an error here.
func (d *Definition) CheckRequired(lookup Lookup) error {
	vars, err := Variables(d.Raw)
	if err != nil {
		return err
	}

	var missing []string
	for _, v := range vars {
		if !v.Required {
			continue
		}
		if _, ok := lookup(v.Name); !ok {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("compose file %s references unset variables: %s",
			d.Path, strings.Join(missing, ", "))
	}
	return nil
}

// document is the minimally-typed shape of a compose file: enough
// structure to validate services, with everything else carried opaquely.
type document struct {
	Name     string                    `yaml:"name,omitempty"`
	Services map[string]map[string]any `yaml:"services"`
	Volumes  map[string]any            `yaml:"volumes,omitempty"`
	Networks map[string]any            `yaml:"networks,omitempty"`
	Configs  map[string]any            `yaml:"configs,omitempty"`
	Secrets  map[string]any            `yaml:"secrets,omitempty"`
}

// Normalize interpolates the definition against the lookup, verifies the
// result is a valid compose document with at least one service, and
// renders it back to YAML with resolved values. yaml.v3 marshals map
// keys in sorted order, so the output is canonical for a given input.
func (d *Definition) Normalize(lookup Lookup) ([]byte, error) {
	if err := d.CheckRequired(lookup); err != nil {
		return nil, err
	}

	resolved, err := Interpolate(d.Raw, lookup)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(resolved, &doc); err != nil {
		return nil, fmt.Errorf("compose file %s is not valid YAML after interpolation: %w", d.Path, err)
	}
	if len(doc.Services) == 0 {
		return nil, fmt.Errorf("compose file %s declares no services", d.Path)
	}
	for name := range doc.Services {
		if name == "" {
			return nil, fmt.Errorf("compose file %s has a service with an empty name", d.Path)
		}
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render normalized compose config: %w", err)
	}
	return out, nil
}

// Services returns the sorted service names declared by the definition.
// Interpolation uses the lookup so references in service bodies do not
// break parsing; unset bare references resolve to empty as usual.
func (d *Definition) Services(lookup Lookup) ([]string, error) {
	resolved, err := Interpolate(d.Raw, lookup)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(resolved, &doc); err != nil {
		return nil, fmt.Errorf("compose file %s is not valid YAML: %w", d.Path, err)
	}

	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
