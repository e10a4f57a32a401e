package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain"
	"github.com/NordCoder/Stockpulse/internal/domain/audit"
	domainauth "github.com/NordCoder/Stockpulse/internal/domain/auth"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

const serviceName = "AuthService"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = domain.New(domain.ErrUnauthorized, "invalid username or password")
	ErrTokenRejected      = domain.New(domain.ErrUnauthorized, "invalid token")
)

// bcrypt ignores input past this many bytes.
const maxPasswordBytes = 72

var (
	errBlank           = errors.New("cannot be blank")
	errPasswordTooLong = errors.New("must be at most 72 bytes")
)

var tracer = otel.Tracer("stockpulse/auth")

type Config struct {
	Now    func() time.Time
	Logger *zap.Logger
	Audit  audit.Sink
}

type Usecase struct {
	users  user.Store
	hasher domainauth.PasswordHasher
	codec  domainauth.TokenCodec
	audit  audit.Sink
	log    *zap.Logger
	now    func() time.Time
}

func NewUseCase(users user.Store, hasher domainauth.PasswordHasher, codec domainauth.TokenCodec, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Audit == nil {
		cfg.Audit = nopSink{}
	}
	return &Usecase{
		users:  users,
		hasher: hasher,
		codec:  codec,
		audit:  cfg.Audit,
		log:    cfg.Logger.With(zap.String("component", "auth.usecase")),
		now:    cfg.Now,
	}
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.By(notBlank)),
		validation.Field(&in.Password, validation.Required, validation.By(fitsBcrypt)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.FullName, validation.Length(0, 128)),
	)
}

func notBlank(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

func fitsBcrypt(v any) error {
	if s, _ := v.(string); len(s) > maxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

type LoginResult struct {
	User   *user.Identity
	Tokens domainauth.TokenPair
}

// DeletionReceipt describes an identity that no longer exists.
type DeletionReceipt struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (_ *user.Identity, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := in.Validate(); err != nil {
		return nil, domain.Validation("%s", err.Error())
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Infra("hash password", err)
	}
	now := u.now()
	rec := &user.Identity{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         user.RoleStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.users.Create(ctx, rec); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			u.record(ctx, audit.StatusWarning, "User already exists", map[string]any{"username": in.Username})
			return nil, err
		}
		u.record(ctx, audit.StatusError, "User not created", map[string]any{"username": in.Username})
		return nil, domain.Infra("user create", err)
	}

	u.record(ctx, audit.StatusSuccess, "User has been created successfully", map[string]any{"user_id": rec.ID})
	return rec.Public(), nil
}

func (u *Usecase) Login(ctx context.Context, username, password string) (_ *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	rec, err := u.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, user.ErrNotFound):
		u.hasher.VerifyDummy(password)
		return nil, u.loginFailed(ctx, username, "unknown_user")
	case err != nil:
		loginsTotal.WithLabelValues("error").Inc()
		return nil, domain.Infra("user by username", err)
	}
	if !u.hasher.Verify(password, rec.PasswordHash) {
		return nil, u.loginFailed(ctx, username, "bad_password")
	}

	subject := domainauth.SubjectOf(rec)
	access, err := u.codec.IssueAccess(subject)
	if err != nil {
		return nil, domain.Infra("issue access", err)
	}
	refresh, err := u.codec.IssueRefresh(subject)
	if err != nil {
		return nil, domain.Infra("issue refresh", err)
	}
	// the whitelist entry takes its expiry from the token itself
	claims, err := u.codec.Verify(refresh)
	if err != nil {
		return nil, domain.Infra("decode refresh", err)
	}

	if err := u.users.PruneExpiredRefreshTokens(ctx, rec.ID, u.now()); err != nil {
		return nil, u.sessionErr("prune sessions", err)
	}
	if err := u.users.PushRefreshToken(ctx, rec.ID, user.SessionRecord{Token: refresh, ExpiresAt: claims.ExpiresAt}); err != nil {
		return nil, u.sessionErr("push session", err)
	}

	loginsTotal.WithLabelValues("success").Inc()
	u.record(ctx, audit.StatusSuccess, "User logged in successfully", map[string]any{"user_id": rec.ID})
	return &LoginResult{
		User:   rec.Public(),
		Tokens: domainauth.TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

// Refresh mints a new access token. The refresh token is returned unchanged, so a
// session never outlives the refresh token it started with.
func (u *Usecase) Refresh(ctx context.Context, refreshToken string) (_ *domainauth.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer func() { endSpan(span, err) }()

	claims, err := u.codec.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != domainauth.KindRefresh {
		u.log.Debug("refresh rejected", zap.String("reason", "wrong_kind"), zap.String("kind", string(claims.Kind)))
		return nil, ErrTokenRejected
	}
	if claims.UserID == "" {
		return nil, ErrTokenRejected
	}

	rec, err := u.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, user.ErrNotFound) {
		u.log.Debug("refresh rejected", zap.String("reason", "unknown_user"), zap.String("user_id", claims.UserID))
		return nil, ErrTokenRejected
	}
	if err != nil {
		return nil, domain.Infra("user get", err)
	}
	if !rec.HasRefreshToken(refreshToken) {
		u.log.Debug("refresh rejected", zap.String("reason", "not_whitelisted"), zap.String("user_id", rec.ID))
		return nil, ErrTokenRejected
	}

	access, err := u.codec.IssueAccess(domainauth.SubjectOf(rec))
	if err != nil {
		return nil, domain.Infra("issue access", err)
	}
	return &domainauth.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Logout drops the presented token from its owner's whitelist. Removing a token
// that is already gone succeeds.
func (u *Usecase) Logout(ctx context.Context, token string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	claims, err := u.codec.Verify(token)
	if err != nil {
		return err
	}
	if claims.UserID == "" {
		return ErrTokenRejected
	}
	err = u.users.PullRefreshToken(ctx, claims.UserID, token)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return domain.Infra("pull session", err)
	}
	u.record(ctx, audit.StatusSuccess, "User logged out", map[string]any{"user_id": claims.UserID})
	return nil
}

func (u *Usecase) RevokeAllSessions(ctx context.Context, identityID string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.RevokeAllSessions")
	defer func() { endSpan(span, err) }()

	if err := u.users.ClearRefreshTokens(ctx, identityID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return err
		}
		return domain.Infra("clear sessions", err)
	}
	u.record(ctx, audit.StatusSuccess, "All sessions revoked", map[string]any{"user_id": identityID})
	return nil
}

// DeleteIdentity removes the identity together with every session it holds.
func (u *Usecase) DeleteIdentity(ctx context.Context, identityID string) (_ *DeletionReceipt, err error) {
	ctx, span := tracer.Start(ctx, "auth.DeleteIdentity")
	defer func() { endSpan(span, err) }()

	rec, err := u.users.Delete(ctx, identityID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			u.record(ctx, audit.StatusWarning, "User doesn't exist, cannot be deleted", map[string]any{"user_id": identityID})
			return nil, err
		}
		u.record(ctx, audit.StatusError, "Error deleting user", map[string]any{"user_id": identityID})
		return nil, domain.Infra("user delete", err)
	}
	receipt := &DeletionReceipt{
		UserID:    rec.ID,
		Email:     rec.Email,
		FullName:  rec.FullName,
		DeletedAt: u.now(),
	}
	u.record(ctx, audit.StatusSuccess, "User deleted successfully", map[string]any{"user_id": rec.ID})
	return receipt, nil
}

// PromoteRole grants admin. Callers enforce that only admins reach it.
func (u *Usecase) PromoteRole(ctx context.Context, identityID string) (_ *user.Identity, err error) {
	ctx, span := tracer.Start(ctx, "auth.PromoteRole")
	defer func() { endSpan(span, err) }()

	rec, err := u.users.SetRole(ctx, identityID, user.RoleAdmin)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		u.record(ctx, audit.StatusError, "Error updating role user", map[string]any{"user_id": identityID})
		return nil, domain.Infra("set role", err)
	}
	u.record(ctx, audit.StatusSuccess, "User updated to admin role successfully", map[string]any{"user_id": rec.ID})
	return rec.Public(), nil
}

func (u *Usecase) loginFailed(ctx context.Context, username, outcome string) error {
	loginsTotal.WithLabelValues(outcome).Inc()
	u.record(ctx, audit.StatusWarning, "Login failed: Incorrect username or password", map[string]any{"username": username})
	return ErrInvalidCredentials
}

// sessionErr treats an identity deleted mid-login as a failed login.
func (u *Usecase) sessionErr(op string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		loginsTotal.WithLabelValues("unknown_user").Inc()
		return ErrInvalidCredentials
	}
	loginsTotal.WithLabelValues("error").Inc()
	return domain.Infra(op, err)
}

func (u *Usecase) record(ctx context.Context, status audit.Status, msg string, meta map[string]any) {
	u.audit.Record(ctx, audit.Event{
		Service:   serviceName,
		Status:    status,
		Message:   msg,
		Metadata:  meta,
		Timestamp: u.now(),
	})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type nopSink struct{}

func (nopSink) Record(context.Context, audit.Event) {}
