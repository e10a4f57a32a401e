package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain"
	domainauth "github.com/NordCoder/Stockpulse/internal/domain/auth"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
	"github.com/NordCoder/Stockpulse/internal/services/api/httpx"
)

var ErrMalformedHeader = domain.New(domain.ErrUnauthorized, "invalid authorization header")

// Guard resolves the caller of a request from its access token. It reads
// sessions but never changes them.
type Guard struct {
	codec domainauth.TokenCodec
	users user.Store
	log   *zap.Logger
}

func NewGuard(codec domainauth.TokenCodec, users user.Store, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{codec: codec, users: users, log: log.With(zap.String("component", "auth.guard"))}
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

// Authenticate accepts access tokens only; refresh tokens never authorize API calls.
func (g *Guard) Authenticate(ctx context.Context, header string) (*user.Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	claims, err := g.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != domainauth.KindAccess {
		g.log.Debug("token rejected", zap.String("reason", "wrong_kind"), zap.String("kind", string(claims.Kind)))
		return nil, ErrTokenRejected
	}
	rec, err := g.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrTokenRejected
	}
	if err != nil {
		return nil, domain.Infra("user get", err)
	}
	return rec.Public(), nil
}

func AdminRequired(p *user.Identity) error {
	if p == nil || p.Role != user.RoleAdmin {
		return domain.New(domain.ErrForbidden, "admins only")
	}
	return nil
}

// OwnerOrAdmin allows admins and the identity addressed by target, given as a
// username or an id.
func OwnerOrAdmin(target string, p *user.Identity) error {
	if p == nil {
		return domain.New(domain.ErrForbidden, "not authorized")
	}
	if p.Role == user.RoleAdmin || p.Username == target || p.ID == target {
		return nil
	}
	return domain.New(domain.ErrForbidden, "not authorized")
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *user.Identity) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromCtx(ctx context.Context) (*user.Identity, bool) {
	p, ok := ctx.Value(principalKey{}).(*user.Identity)
	return p, ok && p != nil
}

// Middleware rejects unauthenticated requests and stores the caller in the request context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			httpx.Error(w, r, g.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
