package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"liquidity-monitor/internal/domain"
)

type memoryRow struct {
	value     float64
	fetchedAt time.Time
}

// MemoryStore is an in-process Store used by tests and throwaway runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]memoryRow // series id -> date -> row
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]memoryRow),
		now:  time.Now,
	}
}

func (s *MemoryStore) Upsert(_ context.Context, seriesID string, points []domain.Point) (int, error) {
	if err := validate(seriesID, points); err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.data[seriesID]
	if !ok {
		rows = make(map[string]memoryRow, len(points))
		s.data[seriesID] = rows
	}
	fetchedAt := s.now().UTC()
	for _, p := range points {
		rows[p.Date] = memoryRow{value: p.Value, fetchedAt: fetchedAt}
	}
	return len(points), nil
}

// sortedDesc returns the dates of a series newest first. Callers hold the lock.
func (s *MemoryStore) sortedDesc(seriesID string) []string {
	rows := s.data[seriesID]
	dates := make([]string, 0, len(rows))
	for d := range rows {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func (s *MemoryStore) Latest(_ context.Context, seriesID string, limit int) ([]domain.Point, error) {
	if err := validateID(seriesID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.Point{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := s.sortedDesc(seriesID)
	if len(dates) > limit {
		dates = dates[:limit]
	}
	out := make([]domain.Point, 0, len(dates))
	for _, d := range dates {
		out = append(out, domain.Point{Date: d, Value: s.data[seriesID][d].value})
	}
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, seriesID string, maxCount int) ([]domain.Point, error) {
	points, err := s.Latest(ctx, seriesID, maxCount)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (s *MemoryStore) ValueOnOrBefore(_ context.Context, seriesID, date string) (domain.Point, bool, error) {
	if err := validateID(seriesID); err != nil {
		return domain.Point{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	best := ""
	for d := range s.data[seriesID] {
		if d <= date && d > best {
			best = d
		}
	}
	if best == "" {
		return domain.Point{}, false, nil
	}
	return domain.Point{Date: best, Value: s.data[seriesID][best].value}, true, nil
}

// FetchedAt returns when the row for (seriesID, date) was last written.
func (s *MemoryStore) FetchedAt(seriesID, date string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.data[seriesID][date]
	return row.fetchedAt, ok
}

func (s *MemoryStore) Close() error { return nil }
