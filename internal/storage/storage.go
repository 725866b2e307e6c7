package storage

import (
	"fmt"
	"log/slog"

	"github.com/Pjroelofsen/gradharvest/internal/config"
	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// Storage is the interface for all output backends.
type Storage interface {
	// StoreCleaned persists the normalized applicant records.
	StoreCleaned(records []types.CleanedRecord) error

	// StoreRaw persists the raw extracted records for diagnostics.
	StoreRaw(records []*types.RawEntryRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New creates the storage backend selected by the configuration.
func New(cfg *config.Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Storage.Type {
	case "file":
		return NewFileStorage(cfg.Storage.OutputPath, cfg.Storage.RawPath, logger)
	case "mongo":
		return NewMongoStorage(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
	case "multi":
		file, err := NewFileStorage(cfg.Storage.OutputPath, cfg.Storage.RawPath, logger)
		if err != nil {
			return nil, err
		}
		db, err := NewMongoStorage(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
		if err != nil {
			file.Close()
			return nil, err
		}
		return NewMultiStorage([]Storage{file, db}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
