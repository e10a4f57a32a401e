package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain"
	domainauth "github.com/NordCoder/Stockpulse/internal/domain/auth"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

// ErrInvalidToken is the single outcome of every failed verification.
// Expired, forged and malformed tokens are only told apart in logs and metrics.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)

var _ domainauth.TokenCodec = (*Codec)(nil)

type CodecConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
	Logger     *zap.Logger
}

// Codec signs and verifies both token kinds with one HS256 secret; the token_type claim keeps them apart.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
	parser     *jwt.Parser
}

type tokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Kind     string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, domain.Infra("token codec", errors.New("signing secret is not configured"))
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(cfg.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Codec{
		secret:     cfg.Secret,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		log:        cfg.Logger.With(zap.String("component", "token.codec")),
		parser:     jwt.NewParser(opts...),
	}, nil
}

func (c *Codec) IssueAccess(s domainauth.Subject) (string, error) {
	return c.issue(s, domainauth.KindAccess, c.accessTTL)
}

func (c *Codec) IssueRefresh(s domainauth.Subject) (string, error) {
	return c.issue(s, domainauth.KindRefresh, c.refreshTTL)
}

func (c *Codec) issue(s domainauth.Subject, kind domainauth.Kind, ttl time.Duration) (string, error) {
	now := c.now()
	claims := tokenClaims{
		UserID:   s.UserID,
		Username: s.Username,
		Role:     string(s.Role),
		Kind:     string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", domain.Infra("sign "+string(kind)+" token", err)
	}
	return signed, nil
}

func (c *Codec) Verify(token string) (*domainauth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, c.reject("empty", nil)
	}

	var tc tokenClaims
	parsed, err := c.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, c.reject(failureReason(err), err)
	}
	if !parsed.Valid {
		return nil, c.reject("invalid", nil)
	}

	kind := domainauth.Kind(tc.Kind)
	role := user.Role(tc.Role)
	switch {
	case strings.TrimSpace(tc.UserID) == "", strings.TrimSpace(tc.Username) == "":
		return nil, c.reject("claims", errors.New("identity claims missing"))
	case !role.Valid():
		return nil, c.reject("claims", fmt.Errorf("unknown role %q", tc.Role))
	case kind != domainauth.KindAccess && kind != domainauth.KindRefresh:
		return nil, c.reject("claims", fmt.Errorf("unknown token_type %q", tc.Kind))
	}

	out := &domainauth.Claims{
		Subject: domainauth.Subject{UserID: tc.UserID, Username: tc.Username, Role: role},
		Kind:    kind,
		TokenID: tc.ID,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.UTC()
	}
	out.ExpiresAt = tc.ExpiresAt.UTC()
	return out, nil
}

func (c *Codec) reject(reason string, cause error) error {
	tokenVerifyFailures.WithLabelValues(reason).Inc()
	fields := []zap.Field{zap.String("reason", reason)}
	if cause != nil {
		fields = append(fields, zap.NamedError("cause", cause))
	}
	c.log.Debug("token rejected", fields...)
	return ErrInvalidToken
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "algorithm"
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not_yet_valid"
	default:
		return "claims"
	}
}
