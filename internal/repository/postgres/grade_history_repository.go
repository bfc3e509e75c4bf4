package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/repository"
)

type gradeHistoryRepository struct {
	db *DB
}

func NewGradeHistoryRepository(db *DB) repository.GradeHistoryRepository {
	return &gradeHistoryRepository{db: db}
}

// SaveSnapshot inserts every entry in one transaction. Rows that already
// exist for (product_id, period) are left untouched.
func (r *gradeHistoryRepository) SaveSnapshot(ctx context.Context, entries []domain.GradeHistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO grade_history (run_id, product_id, sku, period, abc_grade, xyz_grade, combined_grade)
		VALUES (:run_id, :product_id, :sku, :period, :abc_grade, :xyz_grade, :combined_grade)
		ON CONFLICT (product_id, period) DO NOTHING
	`

	inserted := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare grade snapshot insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			res, err := stmt.ExecContext(ctx, e)
			if err != nil {
				return fmt.Errorf("insert grade snapshot for %s: %w", e.ProductID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func (r *gradeHistoryRepository) LatestTwo(ctx context.Context, productIDs []string) ([]domain.GradeHistoryEntry, error) {
	query := `
		SELECT id, run_id, product_id, sku, period, abc_grade, xyz_grade, combined_grade, created_at
		FROM (
			SELECT *, ROW_NUMBER() OVER (PARTITION BY product_id ORDER BY period DESC) AS rn
			FROM grade_history
			%s
		) ranked
		WHERE rn <= 2
		ORDER BY product_id, period DESC
	`

	var args []interface{}
	where := ""
	if len(productIDs) > 0 {
		where = "WHERE product_id = ANY($1::text[])"
		args = append(args, pq.Array(productIDs))
	}

	var rows []domain.GradeHistoryEntry
	if err := r.db.SelectContext(ctx, &rows, fmt.Sprintf(query, where), args...); err != nil {
		return nil, fmt.Errorf("error getting latest grade history: %w", err)
	}

	return rows, nil
}
