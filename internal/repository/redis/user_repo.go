package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

var _ user.Store = (*UserRepo)(nil)

// UserRepo keeps each identity as a hash and its whitelisted refresh tokens as a
// token -> expires_at(ms) hash. Mutations run as single Lua scripts.
type UserRepo struct {
	rdb       redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

func NewUserRepo(rdb redis.UniversalClient, prefix string, opTimeout time.Duration) *UserRepo {
	if prefix == "" {
		prefix = "stockpulse"
	}
	return &UserRepo{rdb: rdb, prefix: prefix, opTimeout: opTimeout}
}

func (r *UserRepo) userKey(id string) string     { return r.prefix + ":user:" + id }
func (r *UserRepo) sessionsKey(id string) string { return r.prefix + ":sessions:" + id }
func (r *UserRepo) usernamePrefix() string       { return r.prefix + ":username:" }
func (r *UserRepo) idsKey() string               { return r.prefix + ":users" }

func (r *UserRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *UserRepo) Create(ctx context.Context, u *user.Identity) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := append([]any{u.ID}, encodeUser(u)...)
	created, err := createUserLua.Run(ctx, r.rdb,
		[]string{r.userKey(u.ID), r.usernamePrefix() + u.Username, r.idsKey()}, args...).Int()
	if err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	if created == 0 {
		return user.ErrUsernameTaken
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.load(ctx, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.rdb.Get(ctx, r.usernamePrefix()+username).Result()
	if errors.Is(err, redis.Nil) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by username: %w", err)
	}
	return r.load(ctx, id)
}

func (r *UserRepo) List(ctx context.Context) ([]*user.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ids, err := r.rdb.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	out := make([]*user.Identity, 0, len(ids))
	for _, id := range ids {
		u, err := r.load(ctx, id)
		if errors.Is(err, user.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) (*user.Identity, error) {
	return r.update(ctx, id, "email", p.Email, "full_name", p.FullName, "updated_at", formatTime(time.Now()))
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role user.Role) (*user.Identity, error) {
	return r.update(ctx, id, "role", string(role), "updated_at", formatTime(time.Now()))
}

func (r *UserRepo) Delete(ctx context.Context, id string) (*user.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := deleteUserLua.Run(ctx, r.rdb,
		[]string{r.userKey(id), r.sessionsKey(id), r.idsKey()}, id, r.usernamePrefix()).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user delete: %w", err)
	}
	return decodeUser(pairs(res))
}

func (r *UserRepo) PushRefreshToken(ctx context.Context, id string, rec user.SessionRecord) error {
	return r.runSession(ctx, "refresh push", pushTokenLua, id, rec.Token, rec.ExpiresAt.UnixMilli())
}

func (r *UserRepo) PullRefreshToken(ctx context.Context, id string, token string) error {
	return r.runSession(ctx, "refresh pull", pullTokenLua, id, token)
}

func (r *UserRepo) ClearRefreshTokens(ctx context.Context, id string) error {
	return r.runSession(ctx, "refresh clear", clearTokensLua, id)
}

func (r *UserRepo) PruneExpiredRefreshTokens(ctx context.Context, id string, now time.Time) error {
	return r.runSession(ctx, "refresh prune", pruneTokensLua, id, now.UnixMilli())
}

func (r *UserRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.rdb.Ping(ctx).Err()
}

func (r *UserRepo) runSession(ctx context.Context, op string, script *redis.Script, id string, args ...any) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ok, err := script.Run(ctx, r.rdb, []string{r.userKey(id), r.sessionsKey(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ok == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) update(ctx context.Context, id string, fields ...any) (*user.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := updateUserLua.Run(ctx, r.rdb, []string{r.userKey(id)}, fields...).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user update: %w", err)
	}
	u, err := decodeUser(pairs(res))
	if err != nil {
		return nil, err
	}
	sessions, err := r.rdb.HGetAll(ctx, r.sessionsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("user sessions: %w", err)
	}
	u.RefreshTokens, err = decodeSessions(sessions)
	return u, err
}

// load reads the identity and its sessions inside one MULTI so they are mutually consistent.
func (r *UserRepo) load(ctx context.Context, id string) (*user.Identity, error) {
	var userCmd, sessCmd *redis.MapStringStringCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		userCmd = pipe.HGetAll(ctx, r.userKey(id))
		sessCmd = pipe.HGetAll(ctx, r.sessionsKey(id))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("user load: %w", err)
	}
	fields := userCmd.Val()
	if len(fields) == 0 {
		return nil, user.ErrNotFound
	}
	u, err := decodeUser(fields)
	if err != nil {
		return nil, err
	}
	u.RefreshTokens, err = decodeSessions(sessCmd.Val())
	if err != nil {
		return nil, err
	}
	return u, nil
}

func encodeUser(u *user.Identity) []any {
	return []any{
		"id", u.ID,
		"username", u.Username,
		"email", u.Email,
		"full_name", u.FullName,
		"password_hash", u.PasswordHash,
		"role", string(u.Role),
		"created_at", formatTime(u.CreatedAt),
		"updated_at", formatTime(u.UpdatedAt),
	}
}

func decodeUser(f map[string]string) (*user.Identity, error) {
	created, err := time.Parse(time.RFC3339Nano, f["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, f["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &user.Identity{
		ID:           f["id"],
		Username:     f["username"],
		Email:        f["email"],
		FullName:     f["full_name"],
		PasswordHash: f["password_hash"],
		Role:         user.Role(f["role"]),
		CreatedAt:    created.UTC(),
		UpdatedAt:    updated.UTC(),
	}, nil
}

func decodeSessions(m map[string]string) ([]user.SessionRecord, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make([]user.SessionRecord, 0, len(m))
	for token, raw := range m {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session expiry: %w", err)
		}
		out = append(out, user.SessionRecord{Token: token, ExpiresAt: time.UnixMilli(ms).UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

// pairs folds a flat HGETALL reply from a script into a map.
func pairs(flat []any) map[string]string {
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		m[k] = v
	}
	return m
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
