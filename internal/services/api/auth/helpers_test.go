package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authcore "github.com/NordCoder/Stockpulse/internal/auth"
	"github.com/NordCoder/Stockpulse/internal/domain/audit"
	domainauth "github.com/NordCoder/Stockpulse/internal/domain/auth"
	"github.com/NordCoder/Stockpulse/internal/repository/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Record(_ context.Context, e audit.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Message)
	}
	return out
}

type fixture struct {
	clk   *clock
	store *memory.UserRepo
	codec *authcore.Codec
	sink  *recordingSink
	uc    *Usecase
	guard *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	hasher, err := authcore.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := authcore.NewCodec(authcore.CodecConfig{
		Secret:     []byte("test-secret"),
		Issuer:     "stockpulse-test",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)

	store := memory.NewUserRepo()
	sink := &recordingSink{}
	uc := NewUseCase(store, hasher, codec, Config{Now: clk.Now, Audit: sink})
	return &fixture{
		clk:   clk,
		store: store,
		codec: codec,
		sink:  sink,
		uc:    uc,
		guard: NewGuard(codec, store, nil),
	}
}

func (f *fixture) register(t *testing.T, username, password string) string {
	t.Helper()
	u, err := f.uc.Register(context.Background(), RegisterInput{
		Username: username,
		Password: password,
		Email:    username + "@example.com",
		FullName: "Test " + username,
	})
	require.NoError(t, err)
	return u.ID
}

func subjectOf(t *testing.T, f *fixture, id string) domainauth.Subject {
	t.Helper()
	u, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return domainauth.SubjectOf(u)
}

func (f *fixture) login(t *testing.T, username, password string) domainauth.TokenPair {
	t.Helper()
	res, err := f.uc.Login(context.Background(), username, password)
	require.NoError(t, err)
	return res.Tokens
}
