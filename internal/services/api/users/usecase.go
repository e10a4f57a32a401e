package users

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain"
	"github.com/NordCoder/Stockpulse/internal/domain/audit"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

const serviceName = "UserService"

type Config struct {
	Now    func() time.Time
	Logger *zap.Logger
	Audit  audit.Sink
}

// Usecase covers profile reads and edits. Session and role changes live in the auth usecase.
type Usecase struct {
	users user.Store
	audit audit.Sink
	log   *zap.Logger
	now   func() time.Time
}

func NewUseCase(users user.Store, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Audit == nil {
		cfg.Audit = nopSink{}
	}
	return &Usecase{users: users, audit: cfg.Audit, log: cfg.Logger, now: cfg.Now}
}

// UpdateInput holds the fields a caller sent; nil means unchanged.
type UpdateInput struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

func (in UpdateInput) Validate() error {
	if in.Email == nil && in.FullName == nil {
		return errors.New("nothing to update")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&in.FullName, validation.Length(0, 128)),
	)
}

// Get looks an identity up by id, then by username.
func (u *Usecase) Get(ctx context.Context, ref string) (*user.Identity, error) {
	rec, err := u.users.GetByID(ctx, ref)
	if errors.Is(err, user.ErrNotFound) {
		rec, err = u.users.GetByUsername(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		return nil, domain.Infra("user get", err)
	}
	return rec.Public(), nil
}

// ListStandard returns every identity that is not an admin.
func (u *Usecase) ListStandard(ctx context.Context) ([]*user.Identity, error) {
	all, err := u.users.List(ctx)
	if err != nil {
		return nil, domain.Infra("user list", err)
	}
	out := make([]*user.Identity, 0, len(all))
	for _, rec := range all {
		if rec.Role != user.RoleAdmin {
			out = append(out, rec.Public())
		}
	}
	return out, nil
}

func (u *Usecase) UpdateProfile(ctx context.Context, id string, in UpdateInput) (*user.Identity, error) {
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &e
	}
	if in.FullName != nil {
		n := strings.TrimSpace(*in.FullName)
		in.FullName = &n
	}
	if err := in.Validate(); err != nil {
		return nil, domain.Validation("%s", err.Error())
	}

	cur, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		return nil, domain.Infra("user get", err)
	}
	p := user.Profile{Email: cur.Email, FullName: cur.FullName}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if in.FullName != nil {
		p.FullName = *in.FullName
	}

	rec, err := u.users.UpdateProfile(ctx, id, p)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		u.record(ctx, audit.StatusError, "Error updating user", id)
		return nil, domain.Infra("user update", err)
	}
	u.record(ctx, audit.StatusSuccess, "User updated successfully", id)
	return rec.Public(), nil
}

func (u *Usecase) record(ctx context.Context, status audit.Status, msg, id string) {
	u.audit.Record(ctx, audit.Event{
		Service:   serviceName,
		Status:    status,
		Message:   msg,
		Metadata:  map[string]any{"user_id": id},
		Timestamp: u.now(),
	})
}

type nopSink struct{}

func (nopSink) Record(context.Context, audit.Event) {}
