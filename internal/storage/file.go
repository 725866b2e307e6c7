package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// FileStorage writes cleaned records as a JSON array and raw records as
// newline-delimited JSON. The cleaned output is buffered and written in one
// atomic temp-file-then-rename pass on Close, so readers never observe a
// half-written array. Raw records stream straight to the JSONL file.
type FileStorage struct {
	outputPath string
	rawPath    string

	mu       sync.Mutex
	cleaned  []types.CleanedRecord
	rawFile  *os.File
	rawEnc   *json.Encoder
	rawCount int

	logger *slog.Logger
}

// NewFileStorage creates a file storage backend. rawPath may be empty to
// skip the raw diagnostic stream. The raw file is opened on the first
// StoreRaw, not here: a run that never produces raw records must leave an
// existing file at that path untouched (clean-only reprocessing reads its
// input from this same path).
func NewFileStorage(outputPath, rawPath string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if rawPath != "" {
		if err := os.MkdirAll(filepath.Dir(rawPath), 0o755); err != nil {
			return nil, fmt.Errorf("create raw output dir: %w", err)
		}
	}

	return &FileStorage{
		outputPath: outputPath,
		rawPath:    rawPath,
		cleaned:    make([]types.CleanedRecord, 0),
		logger:     logger.With("component", "file_storage"),
	}, nil
}

func (s *FileStorage) Name() string { return "file" }

func (s *FileStorage) StoreCleaned(records []types.CleanedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned = append(s.cleaned, records...)
	s.logger.Debug("records buffered", "count", len(records), "total", len(s.cleaned))
	return nil
}

func (s *FileStorage) StoreRaw(records []*types.RawEntryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rawPath == "" || len(records) == 0 {
		return nil
	}
	if s.rawFile == nil {
		f, err := os.Create(s.rawPath)
		if err != nil {
			return fmt.Errorf("create raw output file: %w", err)
		}
		s.rawFile = f
		s.rawEnc = json.NewEncoder(f)
	}
	for _, rec := range records {
		if err := s.rawEnc.Encode(rec); err != nil {
			return fmt.Errorf("encode raw record: %w", err)
		}
		s.rawCount++
	}
	return nil
}

func (s *FileStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rawFile != nil {
		if err := s.rawFile.Close(); err != nil {
			return fmt.Errorf("close raw output: %w", err)
		}
		s.logger.Info("raw JSONL written", "path", s.rawPath, "records", s.rawCount)
	}

	data, err := json.MarshalIndent(s.cleaned, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.outputPath), filepath.Base(s.outputPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmpName, s.outputPath); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}

	s.logger.Info("JSON written", "path", s.outputPath, "records", len(s.cleaned))
	return nil
}
