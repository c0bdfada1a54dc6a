package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
)

// Config is the optional YAML run configuration. Flags override file values.
type Config struct {
	Seed   *int64 `yaml:"seed"`
	Store  string `yaml:"store"`
	Output string `yaml:"output"`
	Passes struct {
		AddLoopIntConstantSynonyms *bool `yaml:"add_loop_int_constant_synonyms"`
		AddPhiSynonyms             *bool `yaml:"add_phi_synonyms"`
		MergeFunctionReturns       *bool `yaml:"merge_function_returns"`
		FlattenConditionalBranches *bool `yaml:"flatten_conditional_branches"`
		ReplaceIrrelevantIDs       *bool `yaml:"replace_irrelevant_ids"`
	} `yaml:"passes"`
}

// configSchema validates the YAML shape before it is trusted. Unknown fields
// and mistyped values are rejected here with CUE's error positions rather
// than surfacing later as zero values.
const configSchema = `
#Config: {
	seed?:   int
	store?:  string & !=""
	output?: string & !=""
	passes?: {
		add_loop_int_constant_synonyms?: bool
		add_phi_synonyms?:               bool
		merge_function_returns?:         bool
		flatten_conditional_branches?:   bool
		replace_irrelevant_ids?:         bool
	}
}
`

func configPath() cue.Path {
	return cue.ParsePath("#Config")
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Decode generically first so the CUE schema sees exactly what was
	// written, including unknown fields.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema).LookupPath(configPath())
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	unified := schema.Unify(ctx.Encode(raw))
	if err := unified.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// SelectedPasses maps the config's pass toggles onto the default pass
// ordering. A nil toggle keeps the pass enabled.
func (c *Config) SelectedPasses() []fuzz.Pass {
	enabled := func(b *bool) bool { return b == nil || *b }
	var passes []fuzz.Pass
	if enabled(c.Passes.AddLoopIntConstantSynonyms) {
		passes = append(passes, fuzz.PassAddLoopIntConstantSynonyms{})
	}
	if enabled(c.Passes.AddPhiSynonyms) {
		passes = append(passes, fuzz.PassAddPhiSynonyms{})
	}
	if enabled(c.Passes.MergeFunctionReturns) {
		passes = append(passes, fuzz.PassMergeFunctionReturns{})
	}
	if enabled(c.Passes.FlattenConditionalBranches) {
		passes = append(passes, fuzz.PassFlattenConditionalBranches{})
	}
	if enabled(c.Passes.ReplaceIrrelevantIDs) {
		passes = append(passes, fuzz.PassReplaceIrrelevantIDs{})
	}
	return passes
}
