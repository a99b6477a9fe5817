// Package store persists observations keyed by (series id, date) and answers
// the point and range queries the derivation layer needs.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"liquidity-monitor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrInvalidInput is returned for an empty series id or a malformed date.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedDSN is returned by Open when no backend accepts the DSN.
	ErrUnsupportedDSN = errors.New("unsupported dsn")
)

// Reader is the read side used by the snapshot builder and metrics service.
type Reader interface {
	// Latest returns at most limit points, newest first.
	Latest(ctx context.Context, seriesID string, limit int) ([]domain.Point, error)
	// History returns the most recent maxCount points, oldest first.
	History(ctx context.Context, seriesID string, maxCount int) ([]domain.Point, error)
	// ValueOnOrBefore returns the newest point dated on or before date.
	ValueOnOrBefore(ctx context.Context, seriesID, date string) (domain.Point, bool, error)
}

// Writer is the write side used by ingestion.
type Writer interface {
	// Upsert inserts or overwrites each point and returns the number of rows written.
	Upsert(ctx context.Context, seriesID string, points []domain.Point) (int, error)
}

// Store is a complete observation store.
type Store interface {
	Reader
	Writer
	Close() error
}

// DefaultDSN is the sqlite file used when DATABASE_URL is unset.
const DefaultDSN = "liquidity.db"

// Open picks a backend from the DSN: postgres:// and postgresql:// URLs use
// Postgres, "memory:" uses the in-process store, anything else is treated as
// a sqlite file path.
func Open(ctx context.Context, dsn string, tracer trace.Tracer) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "memory:" || dsn == ":memory:":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, dsn, tracer)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, dsn)
	}

	if dsn == "" {
		dsn = DefaultDSN
	}
	s, err := OpenSQLite(ctx, dsn, tracer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func validate(seriesID string, points []domain.Point) error {
	if seriesID == "" {
		return fmt.Errorf("%w: empty series id", ErrInvalidInput)
	}
	for _, p := range points {
		if _, err := domain.ParseDate(p.Date); err != nil {
			return fmt.Errorf("%w: series %s: %v", ErrInvalidInput, seriesID, err)
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: series %s: non-finite value on %s", ErrInvalidInput, seriesID, p.Date)
		}
	}
	return nil
}

func validateID(seriesID string) error {
	if seriesID == "" {
		return fmt.Errorf("%w: empty series id", ErrInvalidInput)
	}
	return nil
}
