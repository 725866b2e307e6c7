package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestFileStorageWritesJSONArray(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.json")

	s, err := NewFileStorage(outPath, "", testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	program := "Computer Science"
	records := []types.CleanedRecord{
		{ID: 1, URL: "https://example.com/result/1", Program: &program},
		{ID: 2, URL: "https://example.com/result/2"},
	}
	if err := s.StoreCleaned(records); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var loaded []types.CleanedRecord
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("output not a JSON array: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("records = %d, want 2", len(loaded))
	}
	if loaded[0].Program == nil || *loaded[0].Program != "Computer Science" {
		t.Errorf("program = %v", loaded[0].Program)
	}
	if loaded[1].Program != nil {
		t.Errorf("missing program should round-trip as nil, got %v", loaded[1].Program)
	}

	// Missing fields are explicit nulls, not omitted keys.
	if !strings.Contains(string(data), `"gpa": null`) {
		t.Error("missing gpa not serialized as explicit null")
	}
}

func TestFileStorageAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.json")

	// Pre-existing output from an earlier run.
	if err := os.WriteFile(outPath, []byte(`[{"id": 99}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStorage(outPath, "", testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.StoreCleaned([]types.CleanedRecord{{ID: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	var loaded []types.CleanedRecord
	data, _ := os.ReadFile(outPath)
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("replaced output unreadable: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != 1 {
		t.Errorf("output not replaced: %+v", loaded)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "out.json" {
			t.Errorf("stray file %s left in output dir", e.Name())
		}
	}
}

func TestFileStorageRawJSONL(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.jsonl")

	s, err := NewFileStorage(filepath.Join(dir, "out.json"), rawPath, testLogger)
	if err != nil {
		t.Fatal(err)
	}

	raws := []*types.RawEntryRecord{
		{EntryStub: types.NewEntryStub(1, "https://example.com/result/1"), Decision: "Accepted"},
		{EntryStub: types.NewEntryStub(2, "https://example.com/result/2"), Decision: "Rejected"},
	}
	if err := s.StoreRaw(raws); err != nil {
		t.Fatalf("store raw: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(rawPath)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("raw lines = %d, want 2", len(lines))
	}
	for _, line := range lines {
		var rec types.RawEntryRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line not standalone JSON: %v", err)
		}
	}
}

func TestFileStorageRawFileOpenedOnFirstWrite(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.jsonl")
	if err := os.WriteFile(rawPath, []byte("keep me\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Construction must not touch an existing file at the raw path: a
	// clean-only run reads its input from there.
	s, err := NewFileStorage(filepath.Join(dir, "out.json"), rawPath, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(rawPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "keep me\n" {
		t.Fatalf("raw file modified by construction: %q", data)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(rawPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "keep me\n" {
		t.Fatalf("raw file modified by close without writes: %q", data)
	}

	// The first actual write replaces the file.
	s2, err := NewFileStorage(filepath.Join(dir, "out2.json"), rawPath, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	raws := []*types.RawEntryRecord{
		{EntryStub: types.NewEntryStub(9, "https://example.com/result/9"), Decision: "Accepted"},
	}
	if err := s2.StoreRaw(raws); err != nil {
		t.Fatal(err)
	}
	if err := s2.Close(); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(rawPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "keep me") {
		t.Error("stale content left after first raw write")
	}
	var rec types.RawEntryRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec); err != nil || rec.ID != 9 {
		t.Errorf("raw file content = %q, err %v", data, err)
	}
}

func TestMultiStorageFansOut(t *testing.T) {
	dir := t.TempDir()

	a, err := NewFileStorage(filepath.Join(dir, "a.json"), "", testLogger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFileStorage(filepath.Join(dir, "b.json"), "", testLogger)
	if err != nil {
		t.Fatal(err)
	}

	multi := NewMultiStorage([]Storage{a, b}, testLogger)
	if err := multi.StoreCleaned([]types.CleanedRecord{{ID: 1}}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, name := range []string{"a.json", "b.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
		var loaded []types.CleanedRecord
		if err := json.Unmarshal(data, &loaded); err != nil || len(loaded) != 1 {
			t.Errorf("%s content wrong: %v %v", name, loaded, err)
		}
	}
}
