package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRender_MasksPassword(t *testing.T) {
	cfg, err := Load(Options{
		ConfigFile: writeFile(t, t.TempDir(), "elt.yaml", ""),
		EnvFiles:   []string{writeFile(t, t.TempDir(), ".env", "")},
		LookupEnv:  envMap(requiredEnv()),
	})
	require.NoError(t, err)

	out, err := Render(cfg)
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "secret@")
	assert.Contains(t, text, "xxxxx")
	assert.Contains(t, text, "calculate_view")

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.Contains(t, parsed, "source")
	assert.Contains(t, parsed, "warehouse")
	assert.Contains(t, parsed, "schema")
}
