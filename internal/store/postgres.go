package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"liquidity-monitor/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
)

// ErrSchemaMissing is returned by OpenPostgres when the observations table
// has not been created by the migrations.
var ErrSchemaMissing = errors.New("observations table missing, run `migrate up`")

// PgxPool is the subset of *pgxpool.Pool the Postgres store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps observations in Postgres.
type PostgresStore struct {
	pool   PgxPool
	close  func()
	tracer trace.Tracer
	now    func() time.Time
}

func NewPostgresStore(pool PgxPool, tracer trace.Tracer) *PostgresStore {
	return &PostgresStore{pool: pool, tracer: tracer, now: time.Now}
}

// OpenPostgres connects, pings and checks that the schema is migrated.
func OpenPostgres(ctx context.Context, dsn string, tracer trace.Tracer) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(pool, tracer)
	s.close = pool.Close
	if err := s.CheckSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// CheckSchema reports ErrSchemaMissing until the migrations have run.
func (s *PostgresStore) CheckSchema(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "postgres-store.check-schema")
	defer span.End()

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass('observations') IS NOT NULL`).Scan(&exists); err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, seriesID string, points []domain.Point) (int, error) {
	if err := validate(seriesID, points); err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}

	ctx, span := s.tracer.Start(ctx, "postgres-store.upsert")
	defer span.End()

	fetchedAt := s.now().UTC()
	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO observations (series_id, date, value, fetched_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (series_id, date) DO UPDATE SET
			     value = EXCLUDED.value,
			     fetched_at = EXCLUDED.fetched_at`,
			seriesID, p.Date, p.Value, fetchedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	total := 0
	for _, p := range points {
		tag, err := br.Exec()
		if err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", seriesID, p.Date, err)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

func (s *PostgresStore) Latest(ctx context.Context, seriesID string, limit int) ([]domain.Point, error) {
	if err := validateID(seriesID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.Point{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "postgres-store.latest")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT date, value
		 FROM observations
		 WHERE series_id = $1
		 ORDER BY date DESC
		 LIMIT $2`,
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

func (s *PostgresStore) History(ctx context.Context, seriesID string, maxCount int) ([]domain.Point, error) {
	points, err := s.Latest(ctx, seriesID, maxCount)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (s *PostgresStore) ValueOnOrBefore(ctx context.Context, seriesID, date string) (domain.Point, bool, error) {
	if err := validateID(seriesID); err != nil {
		return domain.Point{}, false, err
	}

	ctx, span := s.tracer.Start(ctx, "postgres-store.value-on-or-before")
	defer span.End()

	var p domain.Point
	err := s.pool.QueryRow(ctx,
		`SELECT date, value
		 FROM observations
		 WHERE series_id = $1 AND date <= $2
		 ORDER BY date DESC
		 LIMIT 1`,
		seriesID, date,
	).Scan(&p.Date, &p.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Point{}, false, nil
	}
	if err != nil {
		return domain.Point{}, false, fmt.Errorf("query %s on or before %s: %w", seriesID, date, err)
	}
	return p, true, nil
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
