package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

var _ user.Store = (*UserRepo)(nil)

// UserRepo keeps identity documents in process memory. Each call is one critical section,
// which gives the same per-document atomicity as the persistent stores.
type UserRepo struct {
	mu         sync.RWMutex
	byID       map[string]*user.Identity
	byUsername map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:       make(map[string]*user.Identity),
		byUsername: make(map[string]string),
	}
}

func (r *UserRepo) Create(ctx context.Context, u *user.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[u.Username]; ok {
		return user.ErrUsernameTaken
	}
	r.byID[u.ID] = clone(u)
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepo) List(ctx context.Context) ([]*user.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*user.Identity, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, clone(u))
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
	return r.mutate(ctx, id, func(u *user.Identity) {
		u.Email = p.Email
		u.FullName = p.FullName
		u.UpdatedAt = time.Now().UTC()
	})
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role user.Role) (*user.Identity, error) {
	return r.mutate(ctx, id, func(u *user.Identity) {
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
	})
}

func (r *UserRepo) Delete(ctx context.Context, id string) (*user.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byUsername, u.Username)
	return u, nil
}

func (r *UserRepo) PushRefreshToken(ctx context.Context, id string, rec user.SessionRecord) error {
	_, err := r.mutate(ctx, id, func(u *user.Identity) {
		u.RefreshTokens = append(u.RefreshTokens, rec)
	})
	return err
}

func (r *UserRepo) PullRefreshToken(ctx context.Context, id string, token string) error {
	_, err := r.mutate(ctx, id, func(u *user.Identity) {
		u.RefreshTokens = filter(u.RefreshTokens, func(rec user.SessionRecord) bool { return rec.Token != token })
	})
	return err
}

func (r *UserRepo) ClearRefreshTokens(ctx context.Context, id string) error {
	_, err := r.mutate(ctx, id, func(u *user.Identity) {
		u.RefreshTokens = nil
	})
	return err
}

func (r *UserRepo) PruneExpiredRefreshTokens(ctx context.Context, id string, now time.Time) error {
	_, err := r.mutate(ctx, id, func(u *user.Identity) {
		u.RefreshTokens = filter(u.RefreshTokens, func(rec user.SessionRecord) bool { return rec.ExpiresAt.After(now) })
	})
	return err
}

func (r *UserRepo) Ping(ctx context.Context) error { return ctx.Err() }

func (r *UserRepo) mutate(ctx context.Context, id string, fn func(u *user.Identity)) (*user.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	fn(u)
	return clone(u), nil
}

func filter(in []user.SessionRecord, keep func(user.SessionRecord) bool) []user.SessionRecord {
	out := make([]user.SessionRecord, 0, len(in))
	for _, rec := range in {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func clone(u *user.Identity) *user.Identity {
	cp := *u
	if u.RefreshTokens != nil {
		cp.RefreshTokens = append([]user.SessionRecord(nil), u.RefreshTokens...)
	}
	return &cp
}
