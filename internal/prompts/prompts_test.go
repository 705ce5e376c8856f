package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogHasBuiltinPreset(t *testing.T) {
	c := NewCatalog()

	p := c.Get(DefaultPresetID)
	assert.Equal(t, DefaultPresetID, p.ID)
	assert.Contains(t, p.Instruction, "Translate all text in this document to English")
	assert.Contains(t, p.Instruction, "tables")
}

func TestCatalogGetFallsBackToDefault(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, DefaultPresetID, c.Get("").ID)
	assert.Equal(t, DefaultPresetID, c.Get("no-such-preset").ID)
}

func TestLoadMissingFileKeepsBuiltin(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "prompts.yaml"))
	require.NoError(t, err)

	assert.Len(t, c.List(), 1)
}

func TestLoadMergesAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	yaml := strings.TrimSpace(`
presets:
  - id: extract-tables
    name: Extract tables only
    instruction: Extract every table in this document as markdown tables.
  - id: translate-english
    name: Translate (custom)
    instruction: Translate to English, short form.
`)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, c.List(), 2)
	assert.Equal(t, "Extract every table in this document as markdown tables.",
		c.Get("extract-tables").Instruction)
	assert.Equal(t, "Translate to English, short form.", c.Get(DefaultPresetID).Instruction)
}

func TestLoadRejectsIncompletePreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("presets:\n  - name: broken\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
