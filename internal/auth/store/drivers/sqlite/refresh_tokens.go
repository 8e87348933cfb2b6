package sqlite

import (
	"context"
	"time"

	"github.com/quickbite/platform/internal/auth/domain"
)

type refreshTokensRepo struct {
	db DBTX
}

func (r *refreshTokensRepo) Create(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, replaced_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, '', ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.Unix(),
		t.CreatedAt.Unix(), t.UpdatedAt.Unix())
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, replaced_by, created_at, updated_at
		 FROM refresh_tokens WHERE token_hash = ?`, hash)

	var t domain.RefreshToken
	var expires, created, updated int64
	var revoked int
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &revoked, &t.ReplacedBy, &created, &updated)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = time.Unix(expires, 0).UTC()
	t.Revoked = revoked != 0
	t.CreatedAt = time.Unix(created, 0).UTC()
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	return t, nil
}

// Consume retires a live token in one conditional UPDATE. RowsAffected
// decides the single winner when rotations race.
func (r *refreshTokensRepo) Consume(ctx context.Context, hash, successorID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens
		 SET revoked = 1, replaced_by = ?, updated_at = ?
		 WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`,
		successorID, now.Unix(), hash, now.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) Revoke(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE token_hash = ? AND revoked = 0`,
		time.Now().UTC().Unix(), hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT token_hash FROM refresh_tokens WHERE user_id = ? AND revoked = 0`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0`,
		time.Now().UTC().Unix(), userID)
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
