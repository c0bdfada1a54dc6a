package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/fuzz/fact"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
	"github.com/stefanomil/SPIRV-Tools/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	Root  *RootOptions
	Store string
}

// NewReplayCommand creates the replay command: re-apply a persisted run's
// transformation sequence and verify it reproduces the recorded module.
func NewReplayCommand(root *RootOptions) *cobra.Command {
	opts := &ReplayOptions{Root: root}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Replay a persisted run and verify the result",
		Long: "Replay loads a run from the store, re-applies its transformation " +
			"sequence to the recorded input module and verifies that the result " +
			"matches the recorded output exactly. A sequence replayed against a " +
			"module it was not derived from stops at the first inapplicable step.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "runs.db", "run store database path")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, runID string) error {
	out := &OutputFormatter{
		Format:    opts.Root.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Root.Verbose,
	}

	db, err := store.Open(opts.Store)
	if err != nil {
		out.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer db.Close()

	run, err := db.LoadRun(cmd.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		out.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", runID), nil)
		return WrapExitError(ExitCommandError, "load run", err)
	}
	if err != nil {
		out.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load run", err)
	}

	out.VerboseLog("replaying %d transformations from run %s (seed %d)",
		run.Sequence.Len(), run.ID, run.Seed)

	m := run.ModuleBefore
	facts := fact.NewManager()
	run.InitialFacts.Seed(m, facts)
	ctx := &fuzz.Context{
		Facts:    facts,
		Overflow: &fuzz.ModuleOverflowSource{Module: m},
	}
	if err := fuzz.Replay(m, ctx, run.Sequence); err != nil {
		var replayErr *fuzz.ReplayError
		if errors.As(err, &replayErr) {
			out.Error(ErrCodeReplayFailed, err.Error(), map[string]any{
				"step": replayErr.Step,
				"kind": replayErr.Kind,
			})
			return WrapExitError(ExitFailure, "replay stopped", err)
		}
		out.Error(ErrCodeReplayFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	var got, want bytes.Buffer
	if err := ir.EncodeJSON(&got, m); err != nil {
		return WrapExitError(ExitCommandError, "encode replayed module", err)
	}
	if err := ir.EncodeJSON(&want, run.ModuleAfter); err != nil {
		return WrapExitError(ExitCommandError, "encode recorded module", err)
	}
	if !bytes.Equal(got.Bytes(), want.Bytes()) {
		out.Error(ErrCodeReplayFailed, "replayed module does not match the recorded result", nil)
		return NewExitError(ExitFailure, "non-deterministic replay")
	}

	return out.Success(map[string]any{
		"run_id":          run.ID,
		"transformations": run.Sequence.Len(),
		"deterministic":   true,
	})
}
