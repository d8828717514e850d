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

const defaultUnitsTable = "unidades"

// UnitRepository is a Postgres implementation for consumer units.
type UnitRepository struct {
	db    DBTX
	table string
}

// NewUnitRepository constructs a repository.
func NewUnitRepository(db DBTX, opts ...UnitOption) *UnitRepository {
	repo := &UnitRepository{db: db, table: defaultUnitsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// UnitOption configures the repository.
type UnitOption func(*UnitRepository)

// WithUnitTable overrides the default table name.
func WithUnitTable(table string) UnitOption {
	return func(repo *UnitRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a unit by id.
func (r *UnitRepository) Get(ctx context.Context, id string) (*masterdata.Unit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("unit repo: nil db")
	}
	if id == "" {
		return nil, errors.New("unit repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, nome, contrato_id, market_type, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByName loads a unit by its unique name.
func (r *UnitRepository) GetByName(ctx context.Context, name string) (*masterdata.Unit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("unit repo: nil db")
	}
	if name == "" {
		return nil, errors.New("unit repo: empty name")
	}

	query := fmt.Sprintf(`
SELECT id, nome, contrato_id, market_type, created_at, updated_at
FROM %s
WHERE nome = $1
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, name))
}

// List returns units matching the filter, ordered by name.
func (r *UnitRepository) List(ctx context.Context, filter masterdata.UnitFilter) ([]masterdata.Unit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("unit repo: nil db")
	}

	var conditions []string
	var args []any
	if filter.ContractID != "" {
		args = append(args, filter.ContractID)
		conditions = append(conditions, fmt.Sprintf("contrato_id = $%d", len(args)))
	}
	if filter.MarketType != "" {
		args = append(args, string(filter.MarketType))
		conditions = append(conditions, fmt.Sprintf("market_type = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
SELECT id, nome, contrato_id, market_type, created_at, updated_at
FROM %s
%s
ORDER BY nome`, r.table, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []masterdata.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// Create inserts a unit.
func (r *UnitRepository) Create(ctx context.Context, unit *masterdata.Unit) error {
	if r == nil || r.db == nil {
		return errors.New("unit repo: nil db")
	}
	if unit == nil {
		return errors.New("unit repo: nil unit")
	}
	if err := unit.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, nome, contrato_id, market_type, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $5)`, r.table)

	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = unit.CreatedAt
	_, err := r.db.ExecContext(ctx, query, unit.ID, unit.Name, unit.ContractID, string(unit.MarketType), unit.CreatedAt)
	return err
}

// Update replaces the mutable fields of a unit.
func (r *UnitRepository) Update(ctx context.Context, unit *masterdata.Unit) error {
	if r == nil || r.db == nil {
		return errors.New("unit repo: nil db")
	}
	if unit == nil {
		return errors.New("unit repo: nil unit")
	}
	if err := unit.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET nome = $2, contrato_id = NULLIF($3, ''), market_type = $4, updated_at = $5
WHERE id = $1`, r.table)

	unit.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, unit.ID, unit.Name, unit.ContractID, string(unit.MarketType), unit.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return masterdata.ErrUnitNotFound
	}
	return nil
}

// Delete removes a unit.
func (r *UnitRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("unit repo: nil db")
	}
	if id == "" {
		return errors.New("unit repo: empty id")
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
		return masterdata.ErrUnitNotFound
	}
	return nil
}

// DetachContract clears the contract reference on every unit of a contract.
func (r *UnitRepository) DetachContract(ctx context.Context, contractID string) error {
	if r == nil || r.db == nil {
		return errors.New("unit repo: nil db")
	}
	if contractID == "" {
		return errors.New("unit repo: empty contract id")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET contrato_id = NULL, updated_at = $2
WHERE contrato_id = $1`, r.table)

	_, err := r.db.ExecContext(ctx, query, contractID, time.Now().UTC())
	return err
}

func (r *UnitRepository) scanOne(row *sql.Row) (*masterdata.Unit, error) {
	unit, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &unit, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (masterdata.Unit, error) {
	var unit masterdata.Unit
	var contractID sql.NullString
	var marketType string
	if err := row.Scan(&unit.ID, &unit.Name, &contractID, &marketType, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
		return masterdata.Unit{}, err
	}
	if contractID.Valid {
		unit.ContractID = contractID.String
	}
	unit.MarketType = masterdata.MarketType(marketType)
	unit.CreatedAt = unit.CreatedAt.UTC()
	unit.UpdatedAt = unit.UpdatedAt.UTC()
	return unit, nil
}
