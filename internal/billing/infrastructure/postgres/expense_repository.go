package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	billing "gestor-energia/internal/billing/domain"
)

const defaultExpensesTable = "despesas"

// ExpenseRepository is a Postgres implementation for expenses.
type ExpenseRepository struct {
	db    DBTX
	table string
}

// NewExpenseRepository constructs a repository.
func NewExpenseRepository(db DBTX, opts ...ExpenseOption) *ExpenseRepository {
	repo := &ExpenseRepository{db: db, table: defaultExpensesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ExpenseOption configures the repository.
type ExpenseOption func(*ExpenseRepository)

// WithExpenseTable overrides the default table name.
func WithExpenseTable(table string) ExpenseOption {
	return func(repo *ExpenseRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const expenseColumns = "id, unidade_id, competencia_id, tipo_despesa, subtipo_encargo, valor, vencimento, codigo_lancamento, detalhes_distribuidora, created_at, updated_at"

// Get loads an expense by id.
func (r *ExpenseRepository) Get(ctx context.Context, id string) (*billing.Expense, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("expense repo: nil db")
	}
	if id == "" {
		return nil, errors.New("expense repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, expenseColumns, r.table)

	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

// List returns expenses matching the filter, ordered by due date.
func (r *ExpenseRepository) List(ctx context.Context, filter billing.ExpenseFilter) ([]billing.Expense, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("expense repo: nil db")
	}

	var conditions []string
	var args []any
	if len(filter.UnitIDs) > 0 {
		marks := make([]string, len(filter.UnitIDs))
		for i, id := range filter.UnitIDs {
			args = append(args, id)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("unidade_id IN (%s)", strings.Join(marks, ", ")))
	}
	if filter.CompetenceID != "" {
		args = append(args, filter.CompetenceID)
		conditions = append(conditions, fmt.Sprintf("competencia_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, fmt.Sprintf("tipo_despesa = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
%s
ORDER BY vencimento, id`, expenseColumns, r.table, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []billing.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

// Create inserts an expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *billing.Expense) error {
	if r == nil || r.db == nil {
		return errors.New("expense repo: nil db")
	}
	if expense == nil {
		return errors.New("expense repo: nil expense")
	}
	if err := expense.Validate(); err != nil {
		return err
	}

	detail, err := marshalDetail(expense.DistributorDetail)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10, $11)`, r.table, expenseColumns)

	now := time.Now().UTC()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt.IsZero() {
		expense.UpdatedAt = expense.CreatedAt
	}
	_, err = r.db.ExecContext(ctx, query,
		expense.ID, expense.UnitID, expense.CompetenceID, string(expense.Type), expense.ChargeSubtype,
		expense.Value, expense.DueDate.UTC(), expense.EntryCode, detail,
		expense.CreatedAt, expense.UpdatedAt)
	return err
}

// Update replaces the mutable fields of an expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *billing.Expense) error {
	if r == nil || r.db == nil {
		return errors.New("expense repo: nil db")
	}
	if expense == nil {
		return errors.New("expense repo: nil expense")
	}
	if err := expense.Validate(); err != nil {
		return err
	}

	detail, err := marshalDetail(expense.DistributorDetail)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET unidade_id = $2,
	competencia_id = $3,
	tipo_despesa = $4,
	subtipo_encargo = NULLIF($5, ''),
	valor = $6,
	vencimento = $7,
	codigo_lancamento = NULLIF($8, ''),
	detalhes_distribuidora = $9,
	updated_at = $10
WHERE id = $1`, r.table)

	expense.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		expense.ID, expense.UnitID, expense.CompetenceID, string(expense.Type), expense.ChargeSubtype,
		expense.Value, expense.DueDate.UTC(), expense.EntryCode, detail, expense.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrExpenseNotFound
	}
	return nil
}

// Delete removes an expense.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("expense repo: nil db")
	}
	if id == "" {
		return errors.New("expense repo: empty id")
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
		return billing.ErrExpenseNotFound
	}
	return nil
}

// DeleteByUnit removes every expense of a unit.
func (r *ExpenseRepository) DeleteByUnit(ctx context.Context, unitID string) error {
	if r == nil || r.db == nil {
		return errors.New("expense repo: nil db")
	}
	if unitID == "" {
		return errors.New("expense repo: empty unit id")
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE unidade_id = $1", r.table)
	_, err := r.db.ExecContext(ctx, query, unitID)
	return err
}

// CountByStoredCompetence counts expenses stored on a competence.
func (r *ExpenseRepository) CountByStoredCompetence(ctx context.Context, competenceID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("expense repo: nil db")
	}
	if competenceID == "" {
		return 0, errors.New("expense repo: empty competence id")
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE competencia_id = $1", r.table)
	var count int
	if err := r.db.QueryRowContext(ctx, query, competenceID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func marshalDetail(detail *billing.DistributorDetail) (any, error) {
	if detail == nil {
		return nil, nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return nil, err
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (billing.Expense, error) {
	var expense billing.Expense
	var expenseType string
	var subtype, entryCode sql.NullString
	var detail []byte
	if err := row.Scan(
		&expense.ID, &expense.UnitID, &expense.CompetenceID, &expenseType, &subtype,
		&expense.Value, &expense.DueDate, &entryCode, &detail,
		&expense.CreatedAt, &expense.UpdatedAt,
	); err != nil {
		return billing.Expense{}, err
	}
	expense.Type = billing.ExpenseType(expenseType)
	if subtype.Valid {
		expense.ChargeSubtype = subtype.String
	}
	if entryCode.Valid {
		expense.EntryCode = entryCode.String
	}
	if len(detail) > 0 {
		var parsed billing.DistributorDetail
		if err := json.Unmarshal(detail, &parsed); err != nil {
			return billing.Expense{}, err
		}
		expense.DistributorDetail = &parsed
	}
	expense.DueDate = expense.DueDate.UTC()
	expense.CreatedAt = expense.CreatedAt.UTC()
	expense.UpdatedAt = expense.UpdatedAt.UTC()
	return expense, nil
}
