package user

import (
	"time"

	"github.com/NordCoder/Stockpulse/internal/domain"
)

type Role string

const (
	RoleStandard Role = "standard_user"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool { return r == RoleStandard || r == RoleAdmin }

// SessionRecord is one whitelisted refresh token embedded in the identity document.
type SessionRecord struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Identity struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	PasswordHash  string          `json:"-"`
	Role          Role            `json:"role"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	RefreshTokens []SessionRecord `json:"-"`
}

// HasRefreshToken reports whether token is whitelisted for this identity.
func (i *Identity) HasRefreshToken(token string) bool {
	for _, rt := range i.RefreshTokens {
		if rt.Token == token {
			return true
		}
	}
	return false
}

// Public returns a copy safe to hand to callers: no password hash, no session set.
func (i *Identity) Public() *Identity {
	cp := *i
	cp.PasswordHash = ""
	cp.RefreshTokens = nil
	return &cp
}

type Profile struct {
	Email    string
	FullName string
}

var (
	ErrNotFound      = domain.New(domain.ErrNotFound, "user not found")
	ErrUsernameTaken = domain.New(domain.ErrConflict, "username already taken")
)
