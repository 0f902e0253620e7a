package compose

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func loadFixture(t *testing.T) *Definition {
	t.Helper()
	d, err := Load(filepath.Join("testdata", "docker-compose.yml"))
	require.NoError(t, err)
	return d
}

// placeholderEnv mirrors what the env-file step materializes in a
// validation run.
func placeholderEnv() map[string]string {
	return map[string]string{
		"API_ID":        "123456",
		"API_HASH":      "dummy_hash_for_ci",
		"SESSION_TOKEN": "dummy_session_for_ci",
	}
}

func TestCheckRequired_AllPresent(t *testing.T) {
	d := loadFixture(t)
	assert.NoError(t, d.CheckRequired(MapLookup(placeholderEnv())))
}

// TestCheckRequired_MissingVariable covers the central validation
// property: a referenced variable absent from the env file fails the
// check, and every missing name is reported.
func TestCheckRequired_MissingVariable(t *testing.T) {
	d := loadFixture(t)
	env := placeholderEnv()
	delete(env, "API_HASH")
	delete(env, "SESSION_TOKEN")

	err := d.CheckRequired(MapLookup(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_HASH")
	assert.Contains(t, err.Error(), "SESSION_TOKEN")
	assert.NotContains(t, err.Error(), "API_ID")
	assert.NotContains(t, err.Error(), "TAG", "defaulted variables are never required")
}

func TestNormalize_ResolvesAndSorts(t *testing.T) {
	d := loadFixture(t)

	out, err := d.Normalize(MapLookup(placeholderEnv()))
	require.NoError(t, err)

	rendered := string(out)
	assert.Contains(t, rendered, "image: service:ci", "default TAG value is applied")
	assert.Contains(t, rendered, "API_HASH: dummy_hash_for_ci")
	assert.NotContains(t, rendered, "${", "no unresolved references remain")

	// The normalized output must itself be a valid compose document.
	var doc document
	require.NoError(t, yaml.Unmarshal(out, &doc))
	require.Len(t, doc.Services, 2)
}

func TestNormalize_MissingVariableFails(t *testing.T) {
	d := loadFixture(t)

	_, err := d.Normalize(MapLookup(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unset variables")
}

func TestNormalize_NoServices(t *testing.T) {
	d := &Definition{Path: "inline.yml", Raw: []byte("volumes:\n  data: {}\n")}

	_, err := d.Normalize(MapLookup(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no services")
}

func TestNormalize_InvalidYAML(t *testing.T) {
	d := &Definition{Path: "inline.yml", Raw: []byte("services: [not: a: map\n")}

	_, err := d.Normalize(MapLookup(nil))
	require.Error(t, err)
}

func TestServices(t *testing.T) {
	d := loadFixture(t)

	names, err := d.Services(MapLookup(placeholderEnv()))
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "service"}, names)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "absent.yml"))
	require.Error(t, err)
}
