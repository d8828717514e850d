package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gestor-energia/internal/auth"
)

const defaultUsersTable = "usuarios"

// Repository persists users.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// PostgresRepository is the Postgres implementation of Repository.
type PostgresRepository struct {
	db    *sql.DB
	table string
}

// NewPostgresRepository constructs a repository.
func NewPostgresRepository(db *sql.DB, opts ...RepositoryOption) *PostgresRepository {
	repo := &PostgresRepository{db: db, table: defaultUsersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*PostgresRepository)

// WithUsersTable overrides the default table name.
func WithUsersTable(table string) RepositoryOption {
	return func(repo *PostgresRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const userColumns = "id, nome, email, password_hash, role, status, accessible_unit_ids, created_at, updated_at"

// Get loads a user by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("users repo: nil db")
	}
	if id == "" {
		return nil, errors.New("users repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, userColumns, r.table)

	return scanUserRow(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail loads a user by normalized email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("users repo: nil db")
	}
	if email == "" {
		return nil, errors.New("users repo: empty email")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE email = $1
LIMIT 1`, userColumns, r.table)

	return scanUserRow(r.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

// List returns every user ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("users repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY nome`, userColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, user)
	}
	return list, rows.Err()
}

// Create inserts a user.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	if r == nil || r.db == nil {
		return errors.New("users repo: nil db")
	}
	if user == nil {
		return errors.New("users repo: nil user")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	unitIDs, err := json.Marshal(user.AccessibleUnitIDs)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`, r.table, userColumns)

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Name, NormalizeEmail(user.Email), user.PasswordHash,
		string(user.Role), string(user.Status), unitIDs, user.CreatedAt)
	return err
}

// Update replaces the mutable fields of a user.
func (r *PostgresRepository) Update(ctx context.Context, user *User) error {
	if r == nil || r.db == nil {
		return errors.New("users repo: nil db")
	}
	if user == nil {
		return errors.New("users repo: nil user")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	unitIDs, err := json.Marshal(user.AccessibleUnitIDs)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET nome = $2, email = $3, password_hash = $4, role = $5, status = $6,
	accessible_unit_ids = $7, updated_at = $8
WHERE id = $1`, r.table)

	user.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, NormalizeEmail(user.Email), user.PasswordHash,
		string(user.Role), string(user.Status), unitIDs, user.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("users repo: nil db")
	}
	if id == "" {
		return errors.New("users repo: empty id")
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
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row *sql.Row) (*User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var role, status string
	var unitIDs []byte
	if err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&role, &status, &unitIDs, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	user.Role = auth.Role(role)
	user.Status = Status(status)
	if len(unitIDs) > 0 {
		if err := json.Unmarshal(unitIDs, &user.AccessibleUnitIDs); err != nil {
			return User{}, err
		}
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}
