package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
seed: 42
store: runs.db
output: out.json
passes:
  flatten_conditional_branches: false
  replace_irrelevant_ids: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(42), *cfg.Seed)
	assert.Equal(t, "runs.db", cfg.Store)
	assert.Equal(t, "out.json", cfg.Output)

	require.NotNil(t, cfg.Passes.FlattenConditionalBranches)
	assert.False(t, *cfg.Passes.FlattenConditionalBranches)
	assert.Nil(t, cfg.Passes.MergeFunctionReturns, "absent toggle stays nil")
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Nil(t, cfg.Seed)
	assert.Empty(t, cfg.Store)
	assert.Len(t, cfg.SelectedPasses(), 5, "everything enabled by default")
}

func TestLoadConfig_RejectsUnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "sede: 42\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoadConfig_RejectsMistypedValue(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "seed: lots\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")

	_, err = LoadConfig(writeConfig(t, "passes:\n  add_phi_synonyms: 3\n"))
	require.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestSelectedPasses_Toggles(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
passes:
  add_loop_int_constant_synonyms: false
  add_phi_synonyms: false
  merge_function_returns: false
  flatten_conditional_branches: false
`))
	require.NoError(t, err)

	passes := cfg.SelectedPasses()
	require.Len(t, passes, 1)
	assert.IsType(t, fuzz.PassReplaceIrrelevantIDs{}, passes[0])
}
