package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stefanomil/SPIRV-Tools/internal/fuzz"
	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one persisted fuzzing run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Seed         int64
	ModuleBefore *ir.Module
	ModuleAfter  *ir.Module
	InitialFacts *fuzz.InitialFacts
	Sequence     *fuzz.Sequence
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID        string
	CreatedAt time.Time
	Seed      int64
	StepCount int
}

// SaveRun persists a completed run under a fresh UUID and returns the id.
func (s *Store) SaveRun(ctx context.Context, seed int64, before, after *ir.Module, initial *fuzz.InitialFacts, seq *fuzz.Sequence) (string, error) {
	id := uuid.NewString()

	var beforeJSON, afterJSON bytes.Buffer
	if err := ir.EncodeJSON(&beforeJSON, before); err != nil {
		return "", fmt.Errorf("encode module before: %w", err)
	}
	if err := ir.EncodeJSON(&afterJSON, after); err != nil {
		return "", fmt.Errorf("encode module after: %w", err)
	}
	if initial == nil {
		initial = &fuzz.InitialFacts{}
	}
	factsJSON, err := json.Marshal(initial)
	if err != nil {
		return "", fmt.Errorf("encode initial facts: %w", err)
	}
	seqJSON, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode sequence: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, module_before, module_after, initial_facts, sequence, step_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, seed, beforeJSON.Bytes(), afterJSON.Bytes(), factsJSON, seqJSON, seq.Len())
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", id, err)
	}

	return id, nil
}

// LoadRun reads one run by id.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	var (
		run        Run
		createdAt  string
		beforeJSON []byte
		afterJSON  []byte
		factsJSON  []byte
		seqJSON    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, seed, module_before, module_after, initial_facts, sequence
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &createdAt, &run.Seed, &beforeJSON, &afterJSON, &factsJSON, &seqJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.CreatedAt, err = time.Parse("2006-01-02 15:04:05", createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for run %s: %w", id, err)
	}
	if run.ModuleBefore, err = ir.DecodeJSON(bytes.NewReader(beforeJSON)); err != nil {
		return nil, fmt.Errorf("decode module before for run %s: %w", id, err)
	}
	if run.ModuleAfter, err = ir.DecodeJSON(bytes.NewReader(afterJSON)); err != nil {
		return nil, fmt.Errorf("decode module after for run %s: %w", id, err)
	}
	run.InitialFacts = &fuzz.InitialFacts{}
	if err := json.Unmarshal(factsJSON, run.InitialFacts); err != nil {
		return nil, fmt.Errorf("decode initial facts for run %s: %w", id, err)
	}
	run.Sequence = &fuzz.Sequence{}
	if err := json.Unmarshal(seqJSON, run.Sequence); err != nil {
		return nil, fmt.Errorf("decode sequence for run %s: %w", id, err)
	}

	return &run, nil
}

// ListRuns returns summaries of all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, seed, step_count
		FROM runs ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary   RunSummary
			createdAt string
		)
		if err := rows.Scan(&summary.ID, &createdAt, &summary.Seed, &summary.StepCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if summary.CreatedAt, err = time.Parse("2006-01-02 15:04:05", createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
