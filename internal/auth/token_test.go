package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/NordCoder/Stockpulse/internal/domain"
	domainauth "github.com/NordCoder/Stockpulse/internal/domain/auth"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, secret string, clk *fakeClock, log *zap.Logger) *Codec {
	t.Helper()
	c, err := NewCodec(CodecConfig{
		Secret:     []byte(secret),
		Issuer:     "stockpulse-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        clk.Now,
		Logger:     log,
	})
	require.NoError(t, err)
	return c
}

var alice = domainauth.Subject{UserID: "u-1", Username: "alice", Role: user.RoleStandard}

func TestCodec_IssueAndVerify(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := newTestCodec(t, "secret", clk, nil)

	access, err := c.IssueAccess(alice)
	require.NoError(t, err)
	refresh, err := c.IssueRefresh(alice)
	require.NoError(t, err)

	ac, err := c.Verify(access)
	require.NoError(t, err)
	require.Equal(t, domainauth.KindAccess, ac.Kind)
	require.Equal(t, alice, ac.Subject)
	require.Equal(t, clk.now.Add(15*time.Minute), ac.ExpiresAt)

	rc, err := c.Verify(refresh)
	require.NoError(t, err)
	require.Equal(t, domainauth.KindRefresh, rc.Kind)
	require.Equal(t, clk.now.Add(24*time.Hour), rc.ExpiresAt)
	require.NotEqual(t, ac.TokenID, rc.TokenID)
}

func TestCodec_TokensIssuedInSameSecondDiffer(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := newTestCodec(t, "secret", clk, nil)

	a, err := c.IssueRefresh(alice)
	require.NoError(t, err)
	b, err := c.IssueRefresh(alice)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCodec_RejectionsCollapseToInvalidToken(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := newTestCodec(t, "secret", clk, nil)
	other := newTestCodec(t, "other-secret", clk, nil)

	forged, err := other.IssueAccess(alice)
	require.NoError(t, err)

	expiring, err := c.IssueAccess(alice)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		UserID: "u-1", Username: "alice", Role: "admin", Kind: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "stockpulse-test",
			IssuedAt:  jwt.NewNumericDate(clk.now),
			ExpiresAt: jwt.NewNumericDate(clk.now.Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	clk.now = clk.now.Add(16 * time.Minute)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"forged":    forged,
		"expired":   expiring,
		"alg none":  unsigned,
		"two parts": "abc.def",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Verify(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
			require.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestCodec_RejectsIncompleteClaims(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := newTestCodec(t, "secret", clk, nil)

	sign := func(tc tokenClaims) string {
		tc.RegisteredClaims = jwt.RegisteredClaims{
			Issuer:    "stockpulse-test",
			IssuedAt:  jwt.NewNumericDate(clk.now),
			ExpiresAt: jwt.NewNumericDate(clk.now.Add(time.Hour)),
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}

	cases := map[string]tokenClaims{
		"no user id":   {Username: "alice", Role: "admin", Kind: "access"},
		"no username":  {UserID: "u-1", Role: "admin", Kind: "access"},
		"bad role":     {UserID: "u-1", Username: "alice", Role: "root", Kind: "access"},
		"bad kind":     {UserID: "u-1", Username: "alice", Role: "admin", Kind: "session"},
		"missing kind": {UserID: "u-1", Username: "alice", Role: "admin"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Verify(sign(tc))
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCodec_LogsExpiredAndForgedDistinctly(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c := newTestCodec(t, "secret", clk, zap.New(core))
	other := newTestCodec(t, "other-secret", clk, nil)

	expiring, err := c.IssueAccess(alice)
	require.NoError(t, err)
	forged, err := other.IssueAccess(alice)
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	_, err = c.Verify(expiring)
	require.Error(t, err)

	clk.now = clk.now.Add(-time.Hour)
	_, err = c.Verify(forged)
	require.Error(t, err)

	entries := logs.FilterMessage("token rejected").All()
	require.Len(t, entries, 2)
	require.Equal(t, "expired", entries[0].ContextMap()["reason"])
	require.Equal(t, "signature", entries[1].ContextMap()["reason"])
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec(CodecConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.ErrorIs(t, err, domain.ErrInfrastructure)
}
