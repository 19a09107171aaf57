// Package interactionlog keeps a bounded, most-recent-first record of
// triage verdicts in a local key/value store. Writing is best effort: a
// failure is logged at debug level and never reaches the caller.
package interactionlog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/triage"
)

const (
	// DefaultKey is the storage key holding the log.
	DefaultKey = "ai4care-interactions"

	// DefaultCapacity is the number of entries kept, and the most any Log
	// keeps.
	DefaultCapacity = 50
)

// Entry is one logged verdict.
type Entry struct {
	triage.TriageResult
	Timestamp time.Time `json:"timestamp"`
}

// Config configures a Log.
type Config struct {
	Storage Storage
	Key     string
	// Capacity lowers the bound below DefaultCapacity. Zero or anything
	// larger means DefaultCapacity.
	Capacity int
	Logger   zerolog.Logger
	// Timeout bounds a single storage round trip (default: 2 seconds).
	Timeout time.Duration
}

// Log is the interaction log.
type Log struct {
	storage  Storage
	key      string
	capacity int
	timeout  time.Duration
	logger   zerolog.Logger
	mu       sync.Mutex
}

// New creates a Log.
func New(cfg Config) *Log {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Capacity <= 0 || cfg.Capacity > DefaultCapacity {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Log{
		storage:  cfg.Storage,
		key:      cfg.Key,
		capacity: cfg.Capacity,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With().Str("component", "interactionlog").Logger(),
	}
}

// Record prepends result to the log, evicting the oldest entry when full.
func (l *Log) Record(result triage.TriageResult, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	existing, err := l.load(ctx)
	if err != nil {
		l.logger.Debug().Err(err).Msg("unreadable interaction log, starting over")
		existing = nil
	}

	q := NewBoundedQueue(l.capacity, existing...)
	q.Push(Entry{TriageResult: result, Timestamp: at.UTC()})

	data, err := json.Marshal(q.Items())
	if err != nil {
		l.logger.Debug().Err(err).Msg("failed to encode interaction log")
		return
	}
	if err := l.storage.SetItem(ctx, l.key, data); err != nil {
		l.logger.Debug().Err(err).Msg("failed to write interaction log")
	}
}

// Entries returns the log, most recent first.
func (l *Log) Entries(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	return entries, nil
}

// Clear removes every entry.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.storage.RemoveItem(ctx, l.key)
}

func (l *Log) load(ctx context.Context) ([]Entry, error) {
	raw, err := l.storage.GetItem(ctx, l.key)
	if errors.Is(err, ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
