package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/store"
)

// FuzzOptions holds flags for the fuzz command.
type FuzzOptions struct {
	Root     *RootOptions
	Config   string
	Seed     int64
	SeedSet  bool
	Store    string
	Output   string
	Facts    []string // ids to pre-mark irrelevant, "id" or "pointee:id"
	DeadList []string // block labels to pre-mark dead
}

// NewFuzzCommand creates the fuzz command: mutate a module and persist the
// replayable run.
func NewFuzzCommand(root *RootOptions) *cobra.Command {
	opts := &FuzzOptions{Root: root}

	cmd := &cobra.Command{
		Use:   "fuzz <module.json>",
		Short: "Apply randomized transformations to a module",
		Long: "Fuzz loads a JSON module, runs the transformation passes with a " +
			"seeded random source, writes the mutated module and records the " +
			"run in the store for later replay.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.SeedSet = cmd.Flags().Changed("seed")
			return runFuzz(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "YAML config file")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (default: time-derived)")
	cmd.Flags().StringVar(&opts.Store, "store", "runs.db", "run store database path")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "mutated module output path (default: stdout)")
	cmd.Flags().StringSliceVar(&opts.Facts, "irrelevant", nil, "ids to mark irrelevant before fuzzing (id or pointee:id)")
	cmd.Flags().StringSliceVar(&opts.DeadList, "dead", nil, "block labels to mark dead before fuzzing")

	return cmd
}

func runFuzz(cmd *cobra.Command, opts *FuzzOptions, modulePath string) error {
	out := &OutputFormatter{
		Format:    opts.Root.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Root.Verbose,
	}

	passes := fuzz.DefaultPasses()
	seed := opts.Seed
	storePath := opts.Store
	outputPath := opts.Output
	if opts.Config != "" {
		cfg, err := LoadConfig(opts.Config)
		if err != nil {
			out.Error(ErrCodeConfigInvalid, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid config", err)
		}
		passes = cfg.SelectedPasses()
		if !opts.SeedSet && cfg.Seed != nil {
			seed = *cfg.Seed
			opts.SeedSet = true
		}
		if cfg.Store != "" && !cmd.Flags().Changed("store") {
			storePath = cfg.Store
		}
		if cfg.Output != "" && outputPath == "" {
			outputPath = cfg.Output
		}
	}
	if !opts.SeedSet {
		seed = time.Now().UnixNano()
	}

	before, err := loadModule(modulePath)
	if err != nil {
		out.Error(ErrCodeModuleDecode, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load module", err)
	}
	// Replay needs the pristine input, so fuzz a second decoded copy.
	m, err := loadModule(modulePath)
	if err != nil {
		out.Error(ErrCodeModuleDecode, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load module", err)
	}

	initial, err := parseInitialFacts(opts.Facts, opts.DeadList)
	if err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parse facts", err)
	}
	facts := fact.NewManager()
	if err := seedFacts(m, facts, initial); err != nil {
		out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "seed facts", err)
	}

	logger := zap.NewNop()
	if opts.Root.Verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	fuzzer := fuzz.New(seed, fuzz.WithLogger(logger), fuzz.WithPasses(passes...))
	seq := fuzzer.Run(m, facts)

	db, err := store.Open(storePath)
	if err != nil {
		out.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer db.Close()

	runID, err := db.SaveRun(cmd.Context(), seed, before, m, initial, seq)
	if err != nil {
		out.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "save run", err)
	}

	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			out.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write module", err)
		}
		defer f.Close()
		if err := ir.EncodeJSON(f, m); err != nil {
			out.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write module", err)
		}
	} else if opts.Root.Format == "text" {
		if err := ir.EncodeJSON(cmd.OutOrStdout(), m); err != nil {
			return WrapExitError(ExitCommandError, "write module", err)
		}
	}

	return out.Success(map[string]any{
		"run_id":          runID,
		"seed":            seed,
		"transformations": seq.Len(),
		"id_bound":        m.IDBound,
	})
}

// loadModule reads a JSON module from disk.
func loadModule(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ir.DecodeJSON(f)
}

// parseInitialFacts converts the command-line fact flags to their
// serializable form.
func parseInitialFacts(irrelevant, dead []string) (*fuzz.InitialFacts, error) {
	initial := &fuzz.InitialFacts{}
	for _, spec := range irrelevant {
		var id ir.ID
		if _, err := fmt.Sscanf(spec, "pointee:%d", &id); err == nil {
			initial.PointeeIrrelevantIDs = append(initial.PointeeIrrelevantIDs, id)
			continue
		}
		if _, err := fmt.Sscanf(spec, "%d", &id); err != nil {
			return nil, fmt.Errorf("bad irrelevant id %q", spec)
		}
		initial.IrrelevantIDs = append(initial.IrrelevantIDs, id)
	}
	for _, spec := range dead {
		var id ir.ID
		if _, err := fmt.Sscanf(spec, "%d", &id); err != nil {
			return nil, fmt.Errorf("bad dead block label %q", spec)
		}
		initial.DeadBlockIDs = append(initial.DeadBlockIDs, id)
	}
	return initial, nil
}

// seedFacts asserts the initial facts before fuzzing starts. Fact contract
// violations panic; at the CLI boundary they surface as ordinary errors since
// the ids came from user input.
func seedFacts(m *ir.Module, facts *fact.Manager, initial *fuzz.InitialFacts) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if cv, ok := r.(*fact.ContractViolation); ok {
				err = cv
				return
			}
			panic(r)
		}
	}()
	initial.Seed(m, facts)
	return nil
}
