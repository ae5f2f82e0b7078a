// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides an embedded score cache backed by BadgerDB.
//
// Ensemble runs are expensive (several LLM calls per document), so results
// are cached keyed on the document content hash, domain and mode. Entries
// expire via Badger's native TTL support.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/guardian-ai/convergence/services/consensus"
)

// ErrCacheMiss is returned by Get when no entry exists for the key.
var ErrCacheMiss = errors.New("score cache miss")

// Config holds configuration for the score cache.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Used in tests.
	InMemory bool

	// TTL is how long a cached result stays valid. Zero means 24 hours.
	TTL time.Duration

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: persistent store, 24h TTL.
func DefaultConfig(path string) Config {
	return Config{Path: path, TTL: 24 * time.Hour}
}

// InMemoryConfig returns a configuration for testing.
func InMemoryConfig() Config {
	return Config{InMemory: true, TTL: time.Hour}
}

// ScoreCache stores finished ensemble results keyed by document identity.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type ScoreCache struct {
	db  *badger.DB
	ttl time.Duration
}

// badgerLogger adapts slog to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open creates the cache, opening or creating the underlying database.
// The caller owns the cache and must Close it.
func Open(cfg Config) (*ScoreCache, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for a persistent cache")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ScoreCache{db: db, ttl: ttl}, nil
}

// Key derives the cache key for a scoring request. Identical text, domain
// and mode always map to the same key; the title is display-only and does
// not participate.
func Key(text, domain, mode string) string {
	sum := sha256.Sum256([]byte(text))
	return "score:" + domain + ":" + mode + ":" + hex.EncodeToString(sum[:])
}

// Get fetches a cached result. Returns ErrCacheMiss when absent or expired.
func (c *ScoreCache) Get(key string) (*consensus.EnsembleResult, error) {
	var result consensus.EnsembleResult
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return &result, nil
}

// Put stores a result under the key with the configured TTL.
func (c *ScoreCache) Put(key string, result *consensus.EnsembleResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// Close releases the underlying database.
func (c *ScoreCache) Close() error {
	return c.db.Close()
}
