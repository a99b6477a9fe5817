package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"testing"
	"time"

	"liquidity-monitor/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type fakeBatchResults struct {
	remaining int
	execErr   error
	closed    bool
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	f.remaining--
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (f *fakeBatchResults) Close() error {
	f.closed = true
	return nil
}

type fakeRow struct {
	value bool
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.value
	return nil
}

type fakePool struct {
	execSQL  []string
	batch    *pgx.Batch
	results  *fakeBatchResults
	querySQL []string
	row      fakeRow
}

func (f *fakePool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakePool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batch = b
	if f.results == nil {
		f.results = &fakeBatchResults{}
	}
	f.results.remaining = b.Len()
	return f.results
}

func (f *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePool) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.querySQL = append(f.querySQL, sql)
	return f.row
}

func TestPostgresStoreUpsertQueuesOneStatementPerPoint(t *testing.T) {
	pool := &fakePool{}
	s := NewPostgresStore(pool, testTracer())

	n, err := s.Upsert(context.Background(), "WALCL", []domain.Point{
		{Date: "2024-01-03", Value: 7700000},
		{Date: "2024-01-10", Value: 7690000},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NotNil(t, pool.batch)
	assert.Equal(t, 2, pool.batch.Len())
	assert.True(t, pool.results.closed)
	assert.Equal(t, 0, pool.results.remaining)
}

func TestPostgresStoreUpsertPropagatesBatchError(t *testing.T) {
	pool := &fakePool{results: &fakeBatchResults{execErr: errors.New("boom")}}
	s := NewPostgresStore(pool, testTracer())

	_, err := s.Upsert(context.Background(), "WALCL", []domain.Point{{Date: "2024-01-03", Value: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPostgresStoreSkipsEmptyAndInvalid(t *testing.T) {
	pool := &fakePool{}
	s := NewPostgresStore(pool, testTracer())

	n, err := s.Upsert(context.Background(), "WALCL", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, pool.batch)

	_, err = s.Upsert(context.Background(), "", []domain.Point{{Date: "2024-01-03"}})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Nil(t, pool.batch)
}

func TestPostgresStoreCheckSchema(t *testing.T) {
	pool := &fakePool{row: fakeRow{value: true}}
	s := NewPostgresStore(pool, testTracer())

	require.NoError(t, s.CheckSchema(context.Background()))
	require.Len(t, pool.querySQL, 1)
	assert.Contains(t, pool.querySQL[0], "to_regclass('observations')")
	assert.Empty(t, pool.execSQL, "the store must not create tables itself")
}

func TestPostgresStoreCheckSchemaMissing(t *testing.T) {
	s := NewPostgresStore(&fakePool{row: fakeRow{value: false}}, testTracer())
	assert.ErrorIs(t, s.CheckSchema(context.Background()), ErrSchemaMissing)

	s = NewPostgresStore(&fakePool{row: fakeRow{err: errors.New("conn reset")}}, testTracer())
	err := s.CheckSchema(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemaMissing)
}

func TestPostgresMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(PostgresMigrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(PostgresMigrations, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))

	first, err := fs.ReadFile(PostgresMigrations, ups[0])
	require.NoError(t, err)
	assert.Contains(t, string(first), "CREATE TABLE IF NOT EXISTS observations")
}

// applyMigrations runs every up migration in version order, the way
// cmd/migrate does.
func applyMigrations(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	ups, err := fs.Glob(PostgresMigrations, "migrations/*.up.sql")
	require.NoError(t, err)
	sort.Strings(ups)
	for _, path := range ups {
		sql, err := fs.ReadFile(PostgresMigrations, path)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "apply %s", path)
	}
}

// setupPostgres starts a throwaway Postgres container. Integration tests run
// only when INTEGRATION is set and -short is off.
func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() || os.Getenv("INTEGRATION") == "" {
		t.Skip("skipping postgres integration test")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("liquidity"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestPostgresStoreIntegration(t *testing.T) {
	dsn := setupPostgres(t)

	_, err := Open(context.Background(), dsn, testTracer())
	require.ErrorIs(t, err, ErrSchemaMissing)

	applyMigrations(t, dsn)

	runStoreSuite(t, func(t *testing.T) Store {
		s, err := Open(context.Background(), dsn, testTracer())
		require.NoError(t, err)
		_, err = s.(*PostgresStore).pool.Exec(context.Background(), "TRUNCATE observations")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
