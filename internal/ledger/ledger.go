// Package ledger keeps the append-only classification history as one JSON
// array document in a docstore.Store.
//
// Every append is a read-modify-write of the whole document. Appends through
// one Ledger are serialized by a mutex, and each save is conditional on the
// version that was read, so a concurrent writer in another process makes the
// save fail with docstore.ErrVersionConflict and the cycle is retried.
// Stores that cannot compare versions are only protected by the mutex.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"audio-insights-go/internal/docstore"
	"audio-insights-go/internal/failure"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

const DefaultPath = "history/results.json"

type Options struct {
	// MaxRetry bounds how long version conflicts are retried.
	MaxRetry time.Duration
	// InitialInterval is the first backoff delay after a conflict.
	InitialInterval time.Duration
	// Now is the clock for entry timestamps.
	Now func() time.Time
}

type Ledger struct {
	mu    sync.Mutex
	store docstore.Store
	path  string
	opts  Options
	log   *logger.Logger
}

func New(store docstore.Store, path string, log *logger.Logger, opts Options) *Ledger {
	if path == "" {
		path = DefaultPath
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 15 * time.Second
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 50 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := &Ledger{store: store, path: path, opts: opts, log: log.Component("ledger").With("path", path)}
	if !store.Conditional() {
		l.log.Warn("ledger store cannot detect concurrent writers; run a single instance")
	}
	return l
}

// Append adds one entry for rec and returns it. The entry id and timestamp
// are assigned here.
func (l *Ledger) Append(ctx context.Context, rec types.ClassificationRecord, usage *types.Usage) (types.HistoryEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return types.HistoryEntry{}, failure.New(failure.Persistence, "new entry id", err)
	}
	entry := types.HistoryEntry{
		ID:                   id.String(),
		Timestamp:            l.opts.Now().UTC().Format(time.RFC3339Nano),
		ClassificationRecord: rec,
		Usage:                usage,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	attempts := 0
	op := func() error {
		attempts++
		err := l.appendOnce(ctx, entry)
		if errors.Is(err, docstore.ErrVersionConflict) {
			l.log.WithField("attempt", attempts).Debug("ledger version conflict, retrying")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.opts.InitialInterval
	b.MaxElapsedTime = l.opts.MaxRetry

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		l.log.WithError(err).WithField("attempts", attempts).Error("ledger append failed")
		return types.HistoryEntry{}, failure.New(failure.Persistence, "append", err)
	}

	l.log.WithFields(map[string]any{"id": entry.ID, "attempts": attempts}).Info("ledger entry appended")
	return entry, nil
}

// appendOnce keeps stored entries as raw bytes so fields this version does
// not model survive the rewrite.
func (l *Ledger) appendOnce(ctx context.Context, entry types.HistoryEntry) error {
	raw, version, err := l.loadRaw(ctx)
	if err != nil {
		return err
	}
	next, err := json.MarshalIndent(entry, "  ", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	_, err = l.store.Save(ctx, l.path, encodeDocument(append(raw, next)), version)
	return err
}

// encodeDocument writes entries as a JSON array without re-encoding them.
func encodeDocument(entries []json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(e)
	}
	buf.WriteString("\n]\n")
	return buf.Bytes()
}

// ReadAll returns every entry in append order. A ledger that was never
// written is empty, not an error.
func (l *Ledger) ReadAll(ctx context.Context) ([]types.HistoryEntry, error) {
	raw, _, err := l.loadRaw(ctx)
	if err != nil {
		return nil, failure.New(failure.Persistence, "read", err)
	}
	entries := make([]types.HistoryEntry, 0, len(raw))
	for i, r := range raw {
		var e types.HistoryEntry
		if err := json.Unmarshal(r, &e); err != nil {
			return nil, failure.New(failure.Persistence, "read", fmt.Errorf("decode ledger entry %d: %w", i, err))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *Ledger) loadRaw(ctx context.Context) ([]json.RawMessage, string, error) {
	doc, err := l.store.Load(ctx, l.path)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	var entries []json.RawMessage
	if len(bytes.TrimSpace(doc.Body)) > 0 {
		if err := json.Unmarshal(doc.Body, &entries); err != nil {
			return nil, "", fmt.Errorf("decode ledger document: %w", err)
		}
	}
	return entries, doc.Version, nil
}
