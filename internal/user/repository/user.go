package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/errors"
)

const userColumns = `id, nii, ni, full_name, year, role, password_hash,
	must_change_password, locked_until, email, phone, active, created_at, updated_at`

// ListParams holds filters for listing users
type ListParams struct {
	Year    *int
	Role    *string
	Active  *bool
	Page    int
	PerPage int
}

// UserRepository handles user persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, nii, ni, full_name, year, role, password_hash,
			must_change_password, email, phone, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID, user.NII, user.NI, user.FullName, user.Year, user.Role,
		user.PasswordHash, user.MustChangePassword, user.Email, user.Phone, user.Active,
	)
	if err != nil {
		return database.MapError(err, "user")
	}
	return nil
}

// GetByID gets a user by internal id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return &user, nil
}

// GetByNII gets a user by public login identifier
func (r *UserRepository) GetByNII(ctx context.Context, nii string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE nii = ?`, nii)
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return &user, nil
}

// List lists users with filters, ordered by year then roster number
func (r *UserRepository) List(ctx context.Context, params ListParams) ([]*domain.User, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if params.Year != nil {
		where = append(where, "year = ?")
		args = append(args, *params.Year)
	}
	if params.Role != nil {
		where = append(where, "role = ?")
		args = append(args, *params.Role)
	}
	if params.Active != nil {
		where = append(where, "active = ?")
		args = append(args, *params.Active)
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT count(*) FROM users `+whereClause, args...); err != nil {
		return nil, 0, database.MapError(err, "user")
	}

	if params.PerPage <= 0 {
		params.PerPage = 50
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	offset := (params.Page - 1) * params.PerPage

	var users []*domain.User
	query := `SELECT ` + userColumns + ` FROM users ` + whereClause +
		` ORDER BY year, ni, full_name LIMIT ? OFFSET ?`
	args = append(args, params.PerPage, offset)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, database.MapError(err, "user")
	}

	return users, total, nil
}

// ListByYear returns the active users of a year
func (r *UserRepository) ListByYear(ctx context.Context, year int) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE year = ? AND active = 1 ORDER BY ni, full_name`,
		year)
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return users, nil
}

// SearchByName finds users via the full-text index over full_name
func (r *UserRepository) SearchByName(ctx context.Context, query string) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+` FROM users
		WHERE nii IN (SELECT nii FROM users_fts WHERE users_fts MATCH ?)
		ORDER BY year, full_name
	`, query)
	if err != nil {
		return nil, database.MapError(err, "user")
	}
	return users, nil
}

// Update updates the administrative fields of a user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET nii = ?, ni = ?, full_name = ?, year = ?, role = ?,
			email = ?, phone = ?, active = ?
		WHERE id = ?
	`,
		user.NII, user.NI, user.FullName, user.Year, user.Role,
		user.Email, user.Phone, user.Active, user.ID,
	)
	if err != nil {
		return database.MapError(err, "user")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFound("user")
	}
	return nil
}

// UpdateContacts updates a user's own contact fields
func (r *UserRepository) UpdateContacts(ctx context.Context, id, email, phone string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, phone = ? WHERE id = ?`, email, phone, id)
	if err != nil {
		return database.MapError(err, "user")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFound("user")
	}
	return nil
}

// SetPassword replaces the password hash and the forced-change flag
func (r *UserRepository) SetPassword(ctx context.Context, id, hash string, mustChange bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, must_change_password = ? WHERE id = ?`,
		hash, mustChange, id)
	if err != nil {
		return database.MapError(err, "user")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFound("user")
	}
	return nil
}

// SetLock sets or clears the lockout instant
func (r *UserRepository) SetLock(ctx context.Context, id string, until *time.Time) error {
	var raw *string
	if until != nil {
		s := until.UTC().Format(time.RFC3339)
		raw = &s
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET locked_until = ? WHERE id = ?`, raw, id)
	if err != nil {
		return database.MapError(err, "user")
	}
	return nil
}

// Delete removes a user. Bookings, absences and sent notifications cascade;
// the append-only logs keep their NII strings.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return database.MapError(err, "user")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFound("user")
	}
	return nil
}

// HasAdmin reports whether any active admin account exists in the store.
// The fallback admin is only honoured when this is false.
func (r *UserRepository) HasAdmin(ctx context.Context) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT count(*) FROM users WHERE role = ? AND active = 1`, domain.RoleAdmin)
	if err != nil {
		return false, database.MapError(err, "user")
	}
	return count > 0, nil
}

// Promote applies the year-advance mapping to active students in a single
// statement, so chained steps such as 1->2 and 2->3 cannot cascade.
// mapping is oldYear -> newYear; years absent from it keep theirs.
func (r *UserRepository) Promote(ctx context.Context, mapping map[int]int) (int64, error) {
	if len(mapping) == 0 {
		return 0, nil
	}

	var (
		cases strings.Builder
		in    []string
		args  []interface{}
	)
	for from, to := range mapping {
		cases.WriteString(" WHEN ? THEN ?")
		args = append(args, from, to)
		in = append(in, "?")
	}
	for from := range mapping {
		args = append(args, from)
	}
	args = append(args, domain.RoleStudent)

	var promoted int64
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `UPDATE users SET year = CASE year` + cases.String() + ` ELSE year END
			WHERE year IN (` + strings.Join(in, ", ") + `) AND active = 1 AND role = ?`
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return database.MapError(err, "user")
		}
		promoted, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	return promoted, nil
}
