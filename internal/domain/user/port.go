package user

import (
	"context"
	"time"
)

// Store persists identity documents. Every mutating method is a single atomic
// operation on one document; callers never read-then-write.
type Store interface {
	Create(ctx context.Context, u *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByUsername(ctx context.Context, username string) (*Identity, error)
	List(ctx context.Context) ([]*Identity, error)
	UpdateProfile(ctx context.Context, id string, p Profile) (*Identity, error)
	SetRole(ctx context.Context, id string, role Role) (*Identity, error)
	Delete(ctx context.Context, id string) (*Identity, error)

	PushRefreshToken(ctx context.Context, id string, rec SessionRecord) error
	PullRefreshToken(ctx context.Context, id string, token string) error
	ClearRefreshTokens(ctx context.Context, id string) error
	PruneExpiredRefreshTokens(ctx context.Context, id string, now time.Time) error

	Ping(ctx context.Context) error
}
