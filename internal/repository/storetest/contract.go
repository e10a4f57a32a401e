// Package storetest holds the behavioural contract every user.Store backend must satisfy.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

func NewIdentity(username string) *user.Identity {
	now := time.Now().UTC().Truncate(time.Second)
	return &user.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: "$2a$04$hash-of-" + username,
		Role:         user.RoleStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Run exercises the store returned by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) user.Store) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		s := newStore(t)
		u := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, u))

		byID, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Username, byID.Username)
		require.Equal(t, u.PasswordHash, byID.PasswordHash)
		require.Equal(t, user.RoleStandard, byID.Role)
		require.Empty(t, byID.RefreshTokens)

		byName, err := s.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)
	})

	t.Run("missing identity", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetByID(ctx, uuid.NewString())
		require.ErrorIs(t, err, user.ErrNotFound)
		_, err = s.GetByUsername(ctx, "nobody")
		require.ErrorIs(t, err, user.ErrNotFound)
		_, err = s.Delete(ctx, uuid.NewString())
		require.ErrorIs(t, err, user.ErrNotFound)
		require.ErrorIs(t, s.PushRefreshToken(ctx, uuid.NewString(), user.SessionRecord{Token: "t"}), user.ErrNotFound)
		require.ErrorIs(t, s.ClearRefreshTokens(ctx, uuid.NewString()), user.ErrNotFound)
	})

	t.Run("duplicate username leaves no partial record", func(t *testing.T) {
		s := newStore(t)
		first := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, first))

		dup := NewIdentity("alice")
		require.ErrorIs(t, s.Create(ctx, dup), user.ErrUsernameTaken)

		_, err := s.GetByID(ctx, dup.ID)
		require.ErrorIs(t, err, user.ErrNotFound)
		got, err := s.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, first.ID, got.ID)

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("push pull clear sessions", func(t *testing.T) {
		s := newStore(t)
		u := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, u))

		exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
		require.NoError(t, s.PushRefreshToken(ctx, u.ID, user.SessionRecord{Token: "r1", ExpiresAt: exp}))
		require.NoError(t, s.PushRefreshToken(ctx, u.ID, user.SessionRecord{Token: "r2", ExpiresAt: exp}))

		got, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.HasRefreshToken("r1"))
		require.True(t, got.HasRefreshToken("r2"))
		for _, rec := range got.RefreshTokens {
			require.True(t, exp.Equal(rec.ExpiresAt), "stored expiry drifted: %v != %v", rec.ExpiresAt, exp)
		}

		require.NoError(t, s.PullRefreshToken(ctx, u.ID, "r1"))
		require.NoError(t, s.PullRefreshToken(ctx, u.ID, "r1"))

		got, err = s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.HasRefreshToken("r1"))
		require.True(t, got.HasRefreshToken("r2"))

		require.NoError(t, s.ClearRefreshTokens(ctx, u.ID))
		got, err = s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Empty(t, got.RefreshTokens)
	})

	t.Run("prune expired sessions", func(t *testing.T) {
		s := newStore(t)
		u := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, u))

		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.PushRefreshToken(ctx, u.ID, user.SessionRecord{Token: "old", ExpiresAt: now.Add(-time.Minute)}))
		require.NoError(t, s.PushRefreshToken(ctx, u.ID, user.SessionRecord{Token: "live", ExpiresAt: now.Add(time.Hour)}))

		require.NoError(t, s.PruneExpiredRefreshTokens(ctx, u.ID, now))

		got, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.HasRefreshToken("old"))
		require.True(t, got.HasRefreshToken("live"))
	})

	t.Run("update profile and role", func(t *testing.T) {
		s := newStore(t)
		u := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, u))

		updated, err := s.UpdateProfile(ctx, u.ID, user.Profile{Email: "new@example.com", FullName: "Alice A."})
		require.NoError(t, err)
		require.Equal(t, "new@example.com", updated.Email)
		require.Equal(t, "Alice A.", updated.FullName)
		require.Equal(t, "alice", updated.Username)

		promoted, err := s.SetRole(ctx, u.ID, user.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, user.RoleAdmin, promoted.Role)

		_, err = s.SetRole(ctx, uuid.NewString(), user.RoleAdmin)
		require.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("delete removes identity and sessions", func(t *testing.T) {
		s := newStore(t)
		u := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, u))
		require.NoError(t, s.PushRefreshToken(ctx, u.ID, user.SessionRecord{Token: "r1", ExpiresAt: time.Now().Add(time.Hour)}))

		deleted, err := s.Delete(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, deleted.Email)
		require.Equal(t, u.FullName, deleted.FullName)

		_, err = s.GetByID(ctx, u.ID)
		require.ErrorIs(t, err, user.ErrNotFound)
		_, err = s.GetByUsername(ctx, "alice")
		require.ErrorIs(t, err, user.ErrNotFound)

		// the username is free again and the new identity starts without sessions
		again := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, again))
		got, err := s.GetByID(ctx, again.ID)
		require.NoError(t, err)
		require.Empty(t, got.RefreshTokens)
	})

	t.Run("concurrent pushes are all kept", func(t *testing.T) {
		s := newStore(t)
		u := NewIdentity("alice")
		require.NoError(t, s.Create(ctx, u))

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.PushRefreshToken(ctx, u.ID, user.SessionRecord{
					Token:     fmt.Sprintf("r%d", i),
					ExpiresAt: time.Now().Add(time.Hour),
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, got.RefreshTokens, n)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(ctx))
	})
}
