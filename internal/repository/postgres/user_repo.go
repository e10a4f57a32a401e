package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

var _ user.Store = (*UserRepo)(nil)

// UserRepo stores one row per identity with its sessions embedded in a JSONB array,
// so every session mutation is a single-row UPDATE.
type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id::text, username, email, full_name, password_hash, role, refresh_tokens, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (id, username, email, full_name, password_hash, role, refresh_tokens, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, '[]'::jsonb, $7, $8);`

	qUserByID = `
SELECT ` + userCols + `
FROM users
WHERE id = $1::uuid;`

	qUserByUsername = `
SELECT ` + userCols + `
FROM users
WHERE username = $1;`

	qUserList = `
SELECT ` + userCols + `
FROM users
ORDER BY created_at, username;`

	qUserUpdateProfile = `
UPDATE users
SET email      = $2,
    full_name  = $3,
    updated_at = NOW()
WHERE id = $1::uuid
RETURNING ` + userCols + `;`

	qUserSetRole = `
UPDATE users
SET role       = $2,
    updated_at = NOW()
WHERE id = $1::uuid
RETURNING ` + userCols + `;`

	qUserDelete = `
DELETE FROM users
WHERE id = $1::uuid
RETURNING ` + userCols + `;`

	qRTPush = `
UPDATE users
SET refresh_tokens = refresh_tokens || jsonb_build_array(jsonb_build_object('token', $2::text, 'expires_at', $3::text))
WHERE id = $1::uuid;`

	qRTPull = `
UPDATE users
SET refresh_tokens = COALESCE(
        (SELECT jsonb_agg(rt) FROM jsonb_array_elements(refresh_tokens) AS rt WHERE rt->>'token' <> $2),
        '[]'::jsonb)
WHERE id = $1::uuid;`

	qRTPrune = `
UPDATE users
SET refresh_tokens = COALESCE(
        (SELECT jsonb_agg(rt) FROM jsonb_array_elements(refresh_tokens) AS rt
         WHERE (rt->>'expires_at')::timestamptz > $2),
        '[]'::jsonb)
WHERE id = $1::uuid;`

	qRTClear = `
UPDATE users
SET refresh_tokens = '[]'::jsonb
WHERE id = $1::uuid;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.Identity) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, qUserInsert,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	return mapErr("user insert", err)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.Identity, error) {
	return r.queryOne(ctx, "user by id", qUserByID, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.Identity, error) {
	return r.queryOne(ctx, "user by username", qUserByUsername, username)
}

func (r *UserRepo) List(ctx context.Context) ([]*user.Identity, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qUserList)
	if err != nil {
		return nil, mapErr("user list", err)
	}
	defer rows.Close()

	var out []*user.Identity
	for rows.Next() {
		var u user.Identity
		if err := scanUser(rows, &u); err != nil {
			return nil, mapErr("user list", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("user list", err)
	}
	return out, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) (*user.Identity, error) {
	return r.queryOne(ctx, "user update profile", qUserUpdateProfile, id, p.Email, p.FullName)
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role user.Role) (*user.Identity, error) {
	return r.queryOne(ctx, "user set role", qUserSetRole, id, string(role))
}

// Delete removes the row and with it the embedded sessions in one statement.
func (r *UserRepo) Delete(ctx context.Context, id string) (*user.Identity, error) {
	return r.queryOne(ctx, "user delete", qUserDelete, id)
}

func (r *UserRepo) PushRefreshToken(ctx context.Context, id string, rec user.SessionRecord) error {
	return r.execOne(ctx, "refresh push", qRTPush, id, rec.Token, rec.ExpiresAt.UTC().Format(time.RFC3339Nano))
}

func (r *UserRepo) PullRefreshToken(ctx context.Context, id string, token string) error {
	return r.execOne(ctx, "refresh pull", qRTPull, id, token)
}

func (r *UserRepo) ClearRefreshTokens(ctx context.Context, id string) error {
	return r.execOne(ctx, "refresh clear", qRTClear, id)
}

func (r *UserRepo) PruneExpiredRefreshTokens(ctx context.Context, id string, now time.Time) error {
	return r.execOne(ctx, "refresh prune", qRTPrune, id, now.UTC())
}

func (r *UserRepo) Ping(ctx context.Context) error { return r.db.Ping(ctx) }

func (r *UserRepo) queryOne(ctx context.Context, op, q string, args ...any) (*user.Identity, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.Identity
	if err := scanUser(r.db.Pool.QueryRow(ctx, q, args...), &u); err != nil {
		return nil, mapErr(op, err)
	}
	return &u, nil
}

func (r *UserRepo) execOne(ctx context.Context, op, q string, args ...any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, out *user.Identity) error {
	var (
		role     string
		sessions []byte
	)
	if err := row.Scan(&out.ID, &out.Username, &out.Email, &out.FullName, &out.PasswordHash,
		&role, &sessions, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return err
	}
	out.Role = user.Role(role)
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &out.RefreshTokens); err != nil {
			return fmt.Errorf("decode refresh_tokens: %w", err)
		}
	}
	return nil
}
