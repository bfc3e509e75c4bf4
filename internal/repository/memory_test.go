package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockintel/internal/domain"
)

func day(d int) time.Time { return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC) }

func TestMemoryStore_Products(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.PutProduct(domain.Product{ID: "p1", SKU: "A"})
	s.PutProduct(domain.Product{ID: "p2", SKU: "B"})
	s.PutProduct(domain.Product{ID: "p1", SKU: "A2"})

	all, err := s.ListProducts(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A2", all[0].SKU)

	bySKU, err := s.ListProducts(ctx, domain.ProductFilter{SKUs: []string{"B"}})
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, "p2", bySKU[0].ID)

	limited, err := s.ListProducts(ctx, domain.ProductFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = s.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DemandSeries(t *testing.T) {
	s := NewMemoryStore()
	s.AddDemand(
		domain.DemandPoint{ProductID: "p1", Period: day(3), Quantity: 3},
		domain.DemandPoint{ProductID: "p1", Period: day(1), Quantity: 1},
		domain.DemandPoint{ProductID: "p1", Period: day(5), Quantity: 5},
		domain.DemandPoint{ProductID: "p2", Period: day(1), Quantity: 9},
	)

	series, err := s.GetDemandSeries(context.Background(), []string{"p1", "p3"}, day(1), day(5))
	require.NoError(t, err)

	require.Len(t, series["p1"], 2)
	assert.Equal(t, 1.0, series["p1"][0].Quantity)
	assert.Equal(t, 3.0, series["p1"][1].Quantity)
	assert.Empty(t, series["p3"])
	assert.NotContains(t, series, "p2")
}

func TestMemoryStore_GradeHistory(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	jan, feb, mar := day(1), day(1).AddDate(0, 1, 0), day(1).AddDate(0, 2, 0)

	n, err := s.SaveSnapshot(ctx, []domain.GradeHistoryEntry{
		{ProductID: "p1", Period: jan, CombinedGrade: "AX"},
		{ProductID: "p1", Period: feb, CombinedGrade: "AY"},
		{ProductID: "p2", Period: feb, CombinedGrade: "CZ"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.SaveSnapshot(ctx, []domain.GradeHistoryEntry{
		{ProductID: "p1", Period: feb, CombinedGrade: "CZ"},
		{ProductID: "p1", Period: mar, CombinedGrade: "BZ"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "existing period rows are never overwritten")

	rows, err := s.LatestTwo(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "p1", rows[0].ProductID)
	assert.Equal(t, mar, rows[0].Period)
	assert.Equal(t, feb, rows[1].Period)
	assert.Equal(t, "AY", string(rows[1].CombinedGrade))
	assert.Equal(t, "p2", rows[2].ProductID)
	assert.NotZero(t, rows[0].ID)
}
