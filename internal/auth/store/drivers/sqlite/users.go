package sqlite

import (
	"context"
	"time"

	"github.com/quickbite/platform/internal/auth/domain"
)

type usersRepo struct {
	db DBTX
}

const userColumns = `id, email, full_name, phone, password_hash, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(ctx, row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(ctx, row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *usersRepo) scanUser(ctx context.Context, row rowScanner) (domain.User, error) {
	var u domain.User
	var created, updated int64
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash, &created, &updated)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()

	u.Roles, err = r.rolesFor(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) rolesFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, phone, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, u.Phone, u.PasswordHash,
		u.CreatedAt.Unix(), u.UpdatedAt.Unix())
	if err != nil {
		return mapConstraint(err)
	}

	for _, role := range u.Roles {
		if _, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`,
			u.ID, role); err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID, fullName, phone string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, phone = ?, updated_at = ? WHERE id = ?`,
		fullName, phone, time.Now().UTC().Unix(), userID)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC().Unix(), userID)
	return err
}

func (r *usersRepo) AddRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`,
		userID, role)
	return err
}

func (r *usersRepo) RemoveRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`,
		userID, role)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
