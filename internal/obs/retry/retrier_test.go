package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Stockpulse/internal/domain"
)

type zeroBackoff struct{}

func (zeroBackoff) Next(int) time.Duration { return 0 }

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Policy{Name: "test", Attempts: 5, Backoff: zeroBackoff{}})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	var exhausted error
	err := Do(context.Background(), func() error {
		calls++
		return fatal
	}, Policy{
		Attempts:  5,
		Backoff:   zeroBackoff{},
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
		OnExhaust: func(err error) { exhausted = err },
	})

	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, exhausted, fatal)
}

func TestDo_ReturnsLastErrorWhenAttemptsRunOut(t *testing.T) {
	var attempts []int
	err := Do(context.Background(), func() error {
		return errors.New("nope")
	}, Policy{
		Attempts:  3,
		Backoff:   zeroBackoff{},
		OnAttempt: func(i int, _ error) { attempts = append(attempts, i) },
	})

	require.EqualError(t, err, "nope")
	require.Equal(t, []int{0, 1, 2}, attempts)
}

func TestDo_HonoursContextWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	}, Policy{Attempts: 5, Backoff: ExpoJitter{Base: time.Hour}})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestExpoJitter_Capped(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	require.Equal(t, 100*time.Millisecond, b.Next(0))
	require.Equal(t, 400*time.Millisecond, b.Next(2))
	require.Equal(t, time.Second, b.Next(10))
	require.Equal(t, 100*time.Millisecond, b.Next(-1))
}

func TestExpoJitter_WithinBounds(t *testing.T) {
	b := ExpoJitter{Base: time.Second, Jitter: 0.2}
	for i := 0; i < 50; i++ {
		d := b.Next(0)
		require.GreaterOrEqual(t, d, 800*time.Millisecond)
		require.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestTransient(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":           {nil, false},
		"cancelled":     {fmt.Errorf("publish: %w", context.Canceled), false},
		"validation":    {domain.Validation("bad input"), false},
		"conflict":      {domain.New(domain.ErrConflict, "taken"), false},
		"unauthorized":  {domain.ErrUnauthorized, false},
		"forbidden":     {domain.ErrForbidden, false},
		"not found":     {domain.New(domain.ErrNotFound, "gone"), false},
		"store timeout": {domain.Infra("store get", context.DeadlineExceeded), true},
		"store refused": {domain.Infra("store get", errors.New("connection refused")), true},
		"broker hiccup": {errors.New("leader not available"), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, Transient(tc.err))
		})
	}
}

func TestDo_DefaultPolicyStopsOnDomainErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return domain.New(domain.ErrNotFound, "user not found")
	}, Policy{Attempts: 5, Backoff: zeroBackoff{}})

	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, 1, calls)
}

func TestDo_DefaultPolicyRetriesInfraErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return domain.Infra("publish", errors.New("broker down"))
	}, Policy{Attempts: 3, Backoff: zeroBackoff{}})

	require.ErrorIs(t, err, domain.ErrInfrastructure)
	require.Equal(t, 3, calls)
}

func TestPublishPolicy_UsesDomainClassification(t *testing.T) {
	p := PublishPolicy("audit.publish", nil)
	p.Backoff = zeroBackoff{}
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return domain.Validation("payload rejected")
	}, p)

	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, 1, calls)
}
