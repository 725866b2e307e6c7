package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Pjroelofsen/gradharvest/internal/types"
)

// MongoStorage writes applicant records to a MongoDB collection. Raw
// records go to a sibling collection with a "_raw" suffix.
type MongoStorage struct {
	client  *mongo.Client
	cleaned *mongo.Collection
	raw     *mongo.Collection
	mu      sync.Mutex
	count   int
	logger  *slog.Logger
}

// NewMongoStorage connects to MongoDB and verifies the connection.
func NewMongoStorage(uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)
	s := &MongoStorage{
		client:  client,
		cleaned: db.Collection(collection),
		raw:     db.Collection(collection + "_raw"),
		logger:  logger.With("component", "mongo_storage"),
	}

	// Duplicate entry ids are rejected at the collection level so
	// re-runs against the same database stay idempotent.
	_, err = s.cleaned.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb index: %w", err)
	}

	return s, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) StoreCleaned(records []types.CleanedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.cleaned.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.logger.Warn("duplicate records skipped by unique index")
		} else {
			return fmt.Errorf("mongodb insert: %w", err)
		}
	}

	s.count += len(records)
	s.logger.Debug("records stored in mongodb", "count", len(records), "total", s.count)
	return nil
}

func (s *MongoStorage) StoreRaw(records []*types.RawEntryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.raw.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongodb raw insert: %w", err)
	}
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// MultiStorage fans writes out to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) StoreCleaned(records []types.CleanedRecord) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.StoreCleaned(records); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) StoreRaw(records []*types.RawEntryRecord) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.StoreRaw(records); err != nil {
			s.logger.Error("backend raw store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
