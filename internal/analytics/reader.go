// Package analytics reads the classification ledger for dashboards and exports.
package analytics

import (
	"context"

	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/types"
)

type HistoryReader interface {
	ReadAll(ctx context.Context) ([]types.HistoryEntry, error)
}

type Reader struct {
	ledger HistoryReader
	log    *logger.Logger
}

func NewReader(ledger HistoryReader, log *logger.Logger) *Reader {
	return &Reader{ledger: ledger, log: log.Component("analytics")}
}

// GetHistory returns the ledger in append order. Read failures are logged
// and reported as an empty history.
func (r *Reader) GetHistory(ctx context.Context) []types.HistoryEntry {
	entries, err := r.ledger.ReadAll(ctx)
	if err != nil {
		r.log.WithError(err).Warn("history unavailable, serving empty analytics")
		return []types.HistoryEntry{}
	}
	if entries == nil {
		return []types.HistoryEntry{}
	}
	return entries
}
