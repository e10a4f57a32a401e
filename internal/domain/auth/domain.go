package auth

import (
	"time"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Subject is the identity snapshot embedded into issued tokens.
type Subject struct {
	UserID   string
	Username string
	Role     user.Role
}

func SubjectOf(u *user.Identity) Subject {
	return Subject{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// Claims is the decoded and validated payload of a token.
type Claims struct {
	Subject
	Kind      Kind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
