package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	billing "gestor-energia/internal/billing/domain"
)

const defaultEstimatesTable = "estimativas"

// EstimateRepository is a Postgres implementation for cost estimates. The
// table keys on (unidade_id, competencia_id), so one estimate exists per
// unit and competence.
type EstimateRepository struct {
	db    DBTX
	table string
}

// NewEstimateRepository constructs a repository.
func NewEstimateRepository(db DBTX, opts ...EstimateOption) *EstimateRepository {
	repo := &EstimateRepository{db: db, table: defaultEstimatesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EstimateOption configures the repository.
type EstimateOption func(*EstimateRepository)

// WithEstimateTable overrides the default table name.
func WithEstimateTable(table string) EstimateOption {
	return func(repo *EstimateRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// List returns every estimate.
func (r *EstimateRepository) List(ctx context.Context) ([]billing.Estimate, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("estimate repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, unidade_id, competencia_id, valor, updated_at
FROM %s`, r.table)

	return r.list(ctx, query)
}

// ListByCompetence returns the estimates recorded for one competence.
func (r *EstimateRepository) ListByCompetence(ctx context.Context, competenceID string) ([]billing.Estimate, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("estimate repo: nil db")
	}
	if competenceID == "" {
		return nil, errors.New("estimate repo: empty competence id")
	}

	query := fmt.Sprintf(`
SELECT id, unidade_id, competencia_id, valor, updated_at
FROM %s
WHERE competencia_id = $1`, r.table)

	return r.list(ctx, query, competenceID)
}

// Upsert stores a batch of estimates, replacing previous values for the
// same unit and competence.
func (r *EstimateRepository) Upsert(ctx context.Context, estimates []billing.Estimate) error {
	if r == nil || r.db == nil {
		return errors.New("estimate repo: nil db")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, unidade_id, competencia_id, valor, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (unidade_id, competencia_id)
DO UPDATE SET valor = EXCLUDED.valor, updated_at = EXCLUDED.updated_at`, r.table)

	for i := range estimates {
		if estimates[i].UpdatedAt.IsZero() {
			estimates[i].UpdatedAt = time.Now().UTC()
		}
		if _, err := r.db.ExecContext(ctx, query,
			estimates[i].ID, estimates[i].UnitID, estimates[i].CompetenceID,
			estimates[i].Value, estimates[i].UpdatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *EstimateRepository) list(ctx context.Context, query string, args ...any) ([]billing.Estimate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var estimates []billing.Estimate
	for rows.Next() {
		var estimate billing.Estimate
		if err := rows.Scan(&estimate.ID, &estimate.UnitID, &estimate.CompetenceID, &estimate.Value, &estimate.UpdatedAt); err != nil {
			return nil, err
		}
		estimate.UpdatedAt = estimate.UpdatedAt.UTC()
		estimates = append(estimates, estimate)
	}
	return estimates, rows.Err()
}
