package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/repository"
)

const productColumns = `
	id, sku, name, unit_price, cost_price, moq, lead_time_days,
	lead_time_std_dev, max_lead_time, safety_stock, reorder_point,
	current_stock, on_order,
	COALESCE(abc_grade, '') AS abc_grade, COALESCE(xyz_grade, '') AS xyz_grade,
	is_overstock, updated_at
`

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if len(filter.ProductIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.ProductIDs))
		argCounter++
	}

	if len(filter.SKUs) > 0 {
		conditions = append(conditions, fmt.Sprintf("sku = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.SKUs))
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY sku"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCounter)
		args = append(args, filter.Limit)
	}

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}

	return products, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting product %s: %w", id, err)
	}

	return &p, nil
}

type demandRepository struct {
	db *DB
}

func NewDemandRepository(db *DB) repository.DemandRepository {
	return &demandRepository{db: db}
}

func (r *demandRepository) GetDemandSeries(ctx context.Context, productIDs []string, from, to time.Time) (map[string][]domain.DemandPoint, error) {
	out := make(map[string][]domain.DemandPoint, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT product_id, period, quantity, revenue
		FROM demand_history
		WHERE product_id = ANY($1::text[])
	`
	args := []interface{}{pq.Array(productIDs)}

	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND period >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND period < $%d", len(args))
	}
	query += " ORDER BY product_id, period"

	var rows []domain.DemandPoint
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting demand series: %w", err)
	}

	for _, id := range productIDs {
		out[id] = nil
	}
	for _, row := range rows {
		out[row.ProductID] = append(out[row.ProductID], row)
	}

	return out, nil
}
