package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

const (
	checkpointFile    = "checkpoint.json"
	partialOutputFile = "partial_output.json"
)

// CheckpointStore persists run progress so an interrupted collection can
// resume without refetching committed entries. Writes are atomic: data is
// written to a temp file in the same directory and renamed into place, so a
// crash mid-write can never leave a truncated checkpoint behind.
type CheckpointStore struct {
	dir    string
	logger *slog.Logger
}

func NewCheckpointStore(dir string, logger *slog.Logger) *CheckpointStore {
	return &CheckpointStore{
		dir:    dir,
		logger: logger.With("component", "checkpoint"),
	}
}

// Save writes the checkpoint and the partial cleaned output.
func (s *CheckpointStore) Save(cp *types.Checkpoint, cleaned []types.CleanedRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}

	cp.LastSavedAt = time.Now().UTC()

	if err := s.writeAtomic(checkpointFile, cp); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := s.writeAtomic(partialOutputFile, cleaned); err != nil {
		return fmt.Errorf("writing partial output: %w", err)
	}

	s.logger.Info("checkpoint saved",
		"page_cursor", cp.PageCursor,
		"succeeded", cp.SucceededCount,
		"failed", cp.FailedCount,
		"records", len(cleaned))
	return nil
}

// LoadLatest reads the checkpoint and any partial output. A missing
// checkpoint returns (nil, nil, nil); a corrupt one returns an error
// wrapping types.ErrCheckpointCorrupt, and the run must not resume from it.
func (s *CheckpointStore) LoadLatest() (*types.Checkpoint, []types.CleanedRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, checkpointFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var cp types.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrCheckpointCorrupt, err)
	}
	if cp.PageCursor < 1 {
		return nil, nil, fmt.Errorf("%w: page cursor %d", types.ErrCheckpointCorrupt, cp.PageCursor)
	}

	var cleaned []types.CleanedRecord
	outData, err := os.ReadFile(filepath.Join(s.dir, partialOutputFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Checkpoint without partial output is still usable; the seen
		// set alone prevents refetching.
	case err != nil:
		return nil, nil, fmt.Errorf("reading partial output: %w", err)
	default:
		if err := json.Unmarshal(outData, &cleaned); err != nil {
			return nil, nil, fmt.Errorf("%w: partial output: %v", types.ErrCheckpointCorrupt, err)
		}
	}

	return &cp, cleaned, nil
}

// HasCheckpoint reports whether a checkpoint file exists.
func (s *CheckpointStore) HasCheckpoint() bool {
	_, err := os.Stat(filepath.Join(s.dir, checkpointFile))
	return err == nil
}

// Clean removes checkpoint state after a run completes normally.
func (s *CheckpointStore) Clean() error {
	for _, name := range []string{checkpointFile, partialOutputFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}

func (s *CheckpointStore) writeAtomic(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.dir, name))
}
