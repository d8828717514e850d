package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	billing "gestor-energia/internal/billing/domain"
)

const defaultCompetencesTable = "competencias"

// CompetenceRepository is a Postgres implementation for competences.
type CompetenceRepository struct {
	db    DBTX
	table string
}

// NewCompetenceRepository constructs a repository.
func NewCompetenceRepository(db DBTX, opts ...CompetenceOption) *CompetenceRepository {
	repo := &CompetenceRepository{db: db, table: defaultCompetencesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// CompetenceOption configures the repository.
type CompetenceOption func(*CompetenceRepository)

// WithCompetenceTable overrides the default table name.
func WithCompetenceTable(table string) CompetenceOption {
	return func(repo *CompetenceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a competence by id.
func (r *CompetenceRepository) Get(ctx context.Context, id string) (*billing.Competence, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("competence repo: nil db")
	}
	if id == "" {
		return nil, errors.New("competence repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, ano, mes, created_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByMonth loads the competence covering a year and month.
func (r *CompetenceRepository) FindByMonth(ctx context.Context, year, month int) (*billing.Competence, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("competence repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, ano, mes, created_at
FROM %s
WHERE ano = $1 AND mes = $2
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, year, month))
}

// List returns every competence, newest month first.
func (r *CompetenceRepository) List(ctx context.Context) ([]billing.Competence, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("competence repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, ano, mes, created_at
FROM %s
ORDER BY ano DESC, mes DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var competences []billing.Competence
	for rows.Next() {
		var competence billing.Competence
		if err := rows.Scan(&competence.ID, &competence.Year, &competence.Month, &competence.CreatedAt); err != nil {
			return nil, err
		}
		competence.CreatedAt = competence.CreatedAt.UTC()
		competences = append(competences, competence)
	}
	return competences, rows.Err()
}

// Create inserts a competence.
func (r *CompetenceRepository) Create(ctx context.Context, competence *billing.Competence) error {
	if r == nil || r.db == nil {
		return errors.New("competence repo: nil db")
	}
	if competence == nil {
		return errors.New("competence repo: nil competence")
	}
	if err := competence.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, ano, mes, created_at)
VALUES ($1, $2, $3, $4)`, r.table)

	if competence.CreatedAt.IsZero() {
		competence.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, competence.ID, competence.Year, competence.Month, competence.CreatedAt)
	return err
}

// Delete removes a competence.
func (r *CompetenceRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("competence repo: nil db")
	}
	if id == "" {
		return errors.New("competence repo: empty id")
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrCompetenceNotFound
	}
	return nil
}

func (r *CompetenceRepository) scanOne(row *sql.Row) (*billing.Competence, error) {
	var competence billing.Competence
	if err := row.Scan(&competence.ID, &competence.Year, &competence.Month, &competence.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	competence.CreatedAt = competence.CreatedAt.UTC()
	return &competence, nil
}
