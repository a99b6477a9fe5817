package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"liquidity-monitor/internal/domain"

	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

const createObservationsSQLite = `
CREATE TABLE IF NOT EXISTS observations (
    series_id  TEXT NOT NULL,
    date       TEXT NOT NULL,
    value      REAL NOT NULL,
    fetched_at TEXT NOT NULL,
    PRIMARY KEY (series_id, date)
)`

// SQLiteStore is the default file-backed Store.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	tracer trace.Tracer
	now    func() time.Time
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string, tracer trace.Tracer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, createObservationsSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("create observations table: %w", err)
	}

	return &SQLiteStore{db: db, tracer: tracer, now: time.Now}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, seriesID string, points []domain.Point) (int, error) {
	if err := validate(seriesID, points); err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}

	ctx, span := s.tracer.Start(ctx, "sqlite-store.upsert")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert %s: %w", seriesID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (series_id, date, value, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (series_id, date) DO UPDATE SET
		     value = excluded.value,
		     fetched_at = excluded.fetched_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert %s: %w", seriesID, err)
	}
	defer stmt.Close()

	fetchedAt := s.now().UTC().Format(time.RFC3339)
	total := 0
	for _, p := range points {
		res, err := stmt.ExecContext(ctx, seriesID, p.Date, p.Value, fetchedAt)
		if err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", seriesID, p.Date, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert %s: %w", seriesID, err)
	}
	return total, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, seriesID string, limit int) ([]domain.Point, error) {
	if err := validateID(seriesID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.Point{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "sqlite-store.latest")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, value FROM observations
		 WHERE series_id = ?
		 ORDER BY date DESC
		 LIMIT ?`,
		seriesID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest %s: %w", seriesID, err)
	}
	defer rows.Close()

	points := []domain.Point{}
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", seriesID, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteStore) History(ctx context.Context, seriesID string, maxCount int) ([]domain.Point, error) {
	points, err := s.Latest(ctx, seriesID, maxCount)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (s *SQLiteStore) ValueOnOrBefore(ctx context.Context, seriesID, date string) (domain.Point, bool, error) {
	if err := validateID(seriesID); err != nil {
		return domain.Point{}, false, err
	}

	ctx, span := s.tracer.Start(ctx, "sqlite-store.value-on-or-before")
	defer span.End()

	var p domain.Point
	err := s.db.QueryRowContext(ctx,
		`SELECT date, value FROM observations
		 WHERE series_id = ? AND date <= ?
		 ORDER BY date DESC
		 LIMIT 1`,
		seriesID, date,
	).Scan(&p.Date, &p.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Point{}, false, nil
	}
	if err != nil {
		return domain.Point{}, false, fmt.Errorf("query %s on or before %s: %w", seriesID, date, err)
	}
	return p, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
