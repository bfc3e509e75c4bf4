package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/stockintel/internal/domain"
)

// MemoryStore implements every repository in memory. It backs tests and the
// CLI's file-driven commands.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	order    []string
	demand   map[string][]domain.DemandPoint
	history  map[string][]domain.GradeHistoryEntry
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]domain.Product),
		demand:   make(map[string][]domain.DemandPoint),
		history:  make(map[string][]domain.GradeHistoryEntry),
	}
}

// PutProduct inserts or replaces a product.
func (s *MemoryStore) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.products[p.ID] = p
}

// AddDemand appends demand points.
func (s *MemoryStore) AddDemand(points ...domain.DemandPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.demand[p.ProductID] = append(s.demand[p.ProductID], p)
	}
}

func (s *MemoryStore) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := toSet(filter.ProductIDs)
	skus := toSet(filter.SKUs)

	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		p := s.products[id]
		if len(ids) > 0 && !ids[p.ID] {
			continue
		}
		if len(skus) > 0 && !skus[p.SKU] {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) GetDemandSeries(ctx context.Context, productIDs []string, from, to time.Time) (map[string][]domain.DemandPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.DemandPoint, len(productIDs))
	for _, id := range productIDs {
		var points []domain.DemandPoint
		for _, p := range s.demand[id] {
			if !from.IsZero() && p.Period.Before(from) {
				continue
			}
			if !to.IsZero() && !p.Period.Before(to) {
				continue
			}
			points = append(points, p)
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].Period.Before(points[j].Period) })
		out[id] = points
	}
	return out, nil
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, entries []domain.GradeHistoryEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, e := range entries {
		if s.hasPeriod(e.ProductID, e.Period) {
			continue
		}
		s.nextID++
		e.ID = s.nextID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		s.history[e.ProductID] = append(s.history[e.ProductID], e)
		inserted++
	}
	return inserted, nil
}

func (s *MemoryStore) hasPeriod(productID string, period time.Time) bool {
	for _, e := range s.history[productID] {
		if e.Period.Equal(period) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) LatestTwo(ctx context.Context, productIDs []string) ([]domain.GradeHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := append([]string(nil), productIDs...)
	if len(ids) == 0 {
		for id := range s.history {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []domain.GradeHistoryEntry
	for _, id := range ids {
		rows := append([]domain.GradeHistoryEntry(nil), s.history[id]...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period.After(rows[j].Period) })
		if len(rows) > 2 {
			rows = rows[:2]
		}
		out = append(out, rows...)
	}
	return out, nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
