// Package envfile reads and writes dotenv-style files.
//
// The env-file step materializes placeholder values into a local file so
// compose validation can resolve its required variables without real
// credentials; the compose-config step reads the same format back. Only
// the common dotenv subset is supported: KEY=VALUE lines, blank lines,
// "#" comments, an optional "export " prefix, and single or double
// quoting of values.
package envfile

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// header is written at the top of every generated file so readers know
// the values are synthetic.
const header = "# Generated by cicada. Placeholder values for validation runs only.\n"

// keyRegex matches the variable names accepted on the left of "=".
// POSIX shell identifier rules: letters, digits, underscores, not
// starting with a digit.
var keyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Write materializes the given values into a dotenv file at path,
// replacing any existing file. Keys are written in sorted order so
// repeated runs produce identical bytes. Values containing whitespace
// or "#" are double-quoted.
func Write(path string, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !keyRegex.MatchString(k) {
			return fmt.Errorf("invalid env file key %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(header)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(values[k]))
		b.WriteByte('\n')
	}

	// 0600: the file is placeholder-only by contract, but dotenv files
	// are habitually secret-shaped, so keep them owner-readable.
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", path, err)
	}
	return nil
}

// Parse reads a dotenv file into a map. Missing files are an error;
// callers that treat the file as optional should stat it first.
func Parse(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: not a KEY=VALUE line", path, lineNo)
		}
		key = strings.TrimSpace(key)
		if !keyRegex.MatchString(key) {
			return nil, fmt.Errorf("%s:%d: invalid key %q", path, lineNo, key)
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return values, nil
}

// quoteIfNeeded wraps a value in double quotes when it contains
// characters that would be misread on parse.
func quoteIfNeeded(v string) string {
	if v == "" || strings.ContainsAny(v, " \t#\"'") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

// unquote strips one level of matching single or double quotes.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			inner := v[1 : len(v)-1]
			if v[0] == '"' {
				inner = strings.ReplaceAll(inner, `\"`, `"`)
			}
			return inner
		}
	}
	return v
}
