// Package repository defines the storage contracts the service depends on
// and an in-memory implementation of them.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/stockintel/internal/domain"
)

// ErrNotFound is returned when a single record lookup finds nothing.
var ErrNotFound = errors.New("not found")

type ProductRepository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type DemandRepository interface {
	// GetDemandSeries returns the demand points of each product in [from, to),
	// ordered by period. A zero from or to leaves that side open.
	GetDemandSeries(ctx context.Context, productIDs []string, from, to time.Time) (map[string][]domain.DemandPoint, error)
}

type GradeHistoryRepository interface {
	// SaveSnapshot inserts rows and skips products that already have a row
	// for the period. It returns the number of rows inserted.
	SaveSnapshot(ctx context.Context, entries []domain.GradeHistoryEntry) (int, error)
	// LatestTwo returns up to two most recent rows per product. An empty
	// productIDs means every product.
	LatestTwo(ctx context.Context, productIDs []string) ([]domain.GradeHistoryEntry, error)
}
