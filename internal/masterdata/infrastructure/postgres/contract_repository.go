package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	masterdata "gestor-energia/internal/masterdata/domain"
)

const defaultContractsTable = "contratos"

// ContractRepository is a Postgres implementation for contracts.
type ContractRepository struct {
	db    DBTX
	table string
}

// NewContractRepository constructs a repository.
func NewContractRepository(db DBTX, opts ...ContractOption) *ContractRepository {
	repo := &ContractRepository{db: db, table: defaultContractsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ContractOption configures the repository.
type ContractOption func(*ContractRepository)

// WithContractTable overrides the default table name.
func WithContractTable(table string) ContractOption {
	return func(repo *ContractRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a contract by id.
func (r *ContractRepository) Get(ctx context.Context, id string) (*masterdata.Contract, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}
	if id == "" {
		return nil, errors.New("contract repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, nome, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var contract masterdata.Contract
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contract.ID, &contract.Name, &contract.CreatedAt, &contract.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	contract.CreatedAt = contract.CreatedAt.UTC()
	contract.UpdatedAt = contract.UpdatedAt.UTC()
	return &contract, nil
}

// List returns every contract ordered by name.
func (r *ContractRepository) List(ctx context.Context) ([]masterdata.Contract, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, nome, created_at, updated_at
FROM %s
ORDER BY nome`, r.table)

	return r.list(ctx, query)
}

// ListByIDs returns the contracts matching the given ids.
func (r *ContractRepository) ListByIDs(ctx context.Context, ids []string) ([]masterdata.Contract, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("contract repo: nil db")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, nome, created_at, updated_at
FROM %s
WHERE id IN (%s)
ORDER BY nome`, r.table, placeholders(len(ids)))

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx, query, args...)
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

// Create inserts a contract.
func (r *ContractRepository) Create(ctx context.Context, contract *masterdata.Contract) error {
	if r == nil || r.db == nil {
		return errors.New("contract repo: nil db")
	}
	if contract == nil {
		return errors.New("contract repo: nil contract")
	}
	if err := contract.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, nome, created_at, updated_at)
VALUES ($1, $2, $3, $3)`, r.table)

	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	contract.UpdatedAt = contract.CreatedAt
	_, err := r.db.ExecContext(ctx, query, contract.ID, contract.Name, contract.CreatedAt)
	return err
}

// Update renames a contract.
func (r *ContractRepository) Update(ctx context.Context, contract *masterdata.Contract) error {
	if r == nil || r.db == nil {
		return errors.New("contract repo: nil db")
	}
	if contract == nil {
		return errors.New("contract repo: nil contract")
	}
	if err := contract.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET nome = $2, updated_at = $3
WHERE id = $1`, r.table)

	contract.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, contract.ID, contract.Name, contract.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return masterdata.ErrContractNotFound
	}
	return nil
}

// Delete removes a contract.
func (r *ContractRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("contract repo: nil db")
	}
	if id == "" {
		return errors.New("contract repo: empty id")
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
		return masterdata.ErrContractNotFound
	}
	return nil
}

func (r *ContractRepository) list(ctx context.Context, query string, args ...any) ([]masterdata.Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []masterdata.Contract
	for rows.Next() {
		var contract masterdata.Contract
		if err := rows.Scan(&contract.ID, &contract.Name, &contract.CreatedAt, &contract.UpdatedAt); err != nil {
			return nil, err
		}
		contract.CreatedAt = contract.CreatedAt.UTC()
		contract.UpdatedAt = contract.UpdatedAt.UTC()
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}
