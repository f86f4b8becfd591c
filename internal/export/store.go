// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package export precomputes every user's recommendations into BadgerDB so
// downstream readers can look them up without running the engine.
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/VernAnge/recommendations-app/internal/recommend"
)

// Key layout
const (
	recKeyPrefix = "rec:"
	manifestKey  = "meta:latest"
)

// ErrNotFound is returned when no export or no entry for a user exists.
var ErrNotFound = errors.New("export entry not found")

// Recommender is the part of recommend.Engine the exporter needs.
type Recommender interface {
	RecommendAll(ctx context.Context, topN int, fn func(userID string, items []recommend.Recommendation) error) (*recommend.Snapshot, error)
}

// Entry is the stored recommendation list of one user.
type Entry struct {
	UserID      string                     `json:"user_id"`
	Version     int                        `json:"version"`
	Items       []recommend.Recommendation `json:"items"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Manifest describes the latest completed export. Generation increases with
// every export and keys its entries, so a reused snapshot version never
// mixes with entries of an earlier export.
type Manifest struct {
	Generation  uint64    `json:"generation"`
	Version     int       `json:"version"`
	Users       int       `json:"users"`
	TopN        int       `json:"top_n"`
	GeneratedAt time.Time `json:"generated_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Store is a BadgerDB-backed recommendation export.
type Store struct {
	db     *badger.DB
	ownsDB bool
}

// Open opens (or creates) a store at path. An empty path keeps the data in memory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for export: %w", err)
	}
	return &Store{db: db, ownsDB: true}, nil
}

// NewStoreFromDB wraps an existing BadgerDB. Close leaves db open.
func NewStoreFromDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Export writes the recommendations of every user of the recommender's
// current snapshot under a new generation. The manifest is updated only
// after all entries are written, so Get never sees a partial export.
// Entries of the previous generation are dropped afterwards.
func (s *Store) Export(ctx context.Context, rec Recommender, topN int) (*Manifest, error) {
	start := time.Now()
	generatedAt := start.UTC()

	previous, err := s.Latest()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	generation := uint64(1)
	if previous != nil {
		generation = previous.Generation + 1
	}
	// Leftovers of an export that failed before its manifest was written.
	if err := s.db.DropPrefix(generationPrefix(generation)); err != nil {
		return nil, fmt.Errorf("clear generation %d: %w", generation, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	// The version is only known once RecommendAll returns, so entries are
	// staged and flushed after.
	entries := make([]Entry, 0)
	snap, err := rec.RecommendAll(ctx, topN, func(userID string, items []recommend.Recommendation) error {
		entries = append(entries, Entry{UserID: userID, Items: items, GeneratedAt: generatedAt})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute recommendations: %w", err)
	}

	for i := range entries {
		entries[i].Version = snap.Version
		data, err := json.Marshal(&entries[i])
		if err != nil {
			return nil, fmt.Errorf("marshal entry: %w", err)
		}
		if err := wb.Set(entryKey(generation, entries[i].UserID), data); err != nil {
			return nil, fmt.Errorf("stage entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("flush entries: %w", err)
	}

	if topN <= 0 {
		topN = recommend.DefaultTopN
	}
	manifest := &Manifest{
		Generation:  generation,
		Version:     snap.Version,
		Users:       len(entries),
		TopN:        topN,
		GeneratedAt: generatedAt,
		DurationMS:  time.Since(start).Milliseconds(),
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(manifestKey), data)
	}); err != nil {
		return nil, fmt.Errorf("set manifest: %w", err)
	}

	if previous != nil {
		if err := s.db.DropPrefix(generationPrefix(previous.Generation)); err != nil {
			return manifest, fmt.Errorf("drop generation %d: %w", previous.Generation, err)
		}
	}
	return manifest, nil
}

// Latest returns the manifest of the last completed export.
func (s *Store) Latest() (*Manifest, error) {
	var m Manifest
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(manifestKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get manifest: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns the user's entry from the latest export.
func (s *Store) Get(_ context.Context, userID string) (*Entry, error) {
	m, err := s.Latest()
	if err != nil {
		return nil, err
	}

	var e Entry
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(m.Generation, userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: user %q", ErrNotFound, userID)
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Users lists the users of the latest export in key order.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	m, err := s.Latest()
	if err != nil {
		return nil, err
	}

	prefix := generationPrefix(m.Generation)
	users := make([]string, 0, m.Users)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			users = append(users, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func generationPrefix(generation uint64) []byte {
	return []byte(recKeyPrefix + strconv.FormatUint(generation, 10) + ":")
}

func entryKey(generation uint64, userID string) []byte {
	return append(generationPrefix(generation), userID...)
}
