package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository and port.OrgDirectory over
// the users table.
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

var (
	_ port.UserRepository = (*UserRepository)(nil)
	_ port.OrgDirectory   = (*UserRepository)(nil)
)

const userColumns = `id, company_id, email, name, role, manager_id, is_active, created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		user.ID,
		user.CompanyID,
		user.Email,
		user.Name,
		user.Role,
		user.ManagerID,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID, or nil when it does not exist
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ManagerOf returns the active manager one link above the user, or nil when
// the user has no manager or the manager is inactive
func (r *UserRepository) ManagerOf(ctx context.Context, userID string) (*entity.User, error) {
	query := `
		SELECT ` + prefixedUserColumns("m") + `
		FROM users u
		JOIN users m ON m.id = u.manager_id
		WHERE u.id = ? AND m.is_active = 1
	`
	manager, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manager: %w", err)
	}
	return manager, nil
}

// RosterOf returns every active user in the company holding one of the given
// roles, ordered by creation for a stable cohort order
func (r *UserRepository) RosterOf(ctx context.Context, companyID string, roles []entity.Role) ([]*entity.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(roles))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + userColumns + ` FROM users
		WHERE company_id = ? AND is_active = 1 AND role IN (` + placeholders + `)
		ORDER BY created_at ASC, id ASC`

	args := make([]interface{}, 0, len(roles)+1)
	args = append(args, companyID)
	for _, role := range roles {
		args = append(args, role)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func prefixedUserColumns(alias string) string {
	cols := strings.Split(userColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user      entity.User
		managerID sql.NullString
	)

	err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Email,
		&user.Name,
		&user.Role,
		&managerID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.String
	}
	return &user, nil
}
