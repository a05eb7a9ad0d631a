package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvamed/ontoforge/ontology"
)

func TestDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ontoforge.db", cfg.Database.Path)
	assert.False(t, cfg.Ontology.AutoCreateInverse)
	assert.Equal(t, 0.85, cfg.Builder.ExactMatchThreshold)
	assert.Equal(t, 0.6, cfg.Builder.FuzzyMatchThreshold)
	assert.Equal(t, 0.7, cfg.Builder.ReviewFloor)
	assert.Equal(t, 10.0, cfg.Validator.ErrorWeight)
	assert.Equal(t, 3, cfg.Validator.MinLabelLength)

	checklist := cfg.Checklist()
	assert.Contains(t, checklist[ontology.SystemLinac], ontology.SubsystemBeamDelivery)
	assert.Len(t, checklist[ontology.SystemLinac], 5)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ontoforge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "custom.db"

[builder]
review_floor = 0.5

[validator]
min_label_length = 5
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Database.Path)
	assert.Equal(t, 0.5, cfg.Builder.ReviewFloor)
	assert.Equal(t, 5, cfg.Validator.MinLabelLength)
	// untouched keys keep their defaults
	assert.Equal(t, 0.85, cfg.Builder.ExactMatchThreshold)
}

func TestLoadFromFileRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ontoforge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[builder]
fuzzy_match_threshold = 0.95
exact_match_threshold = 0.85
`), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestValidateRejectsUnknownChecklistEntries(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
[validator.expected_subsystems]
linac = ["warp_drive"]
`))
	require.Error(t, err)
	require.Nil(t, cfg)

	cfg, err = LoadFromFile(writeConfig(t, `
[validator.expected_subsystems]
hovercraft = ["cooling"]
`))
	require.Error(t, err)
	require.Nil(t, cfg)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ontoforge.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}
