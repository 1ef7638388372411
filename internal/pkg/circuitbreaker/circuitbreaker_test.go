package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func fail(context.Context) (string, error) { return "", errUpstream }
func ok(context.Context) (string, error)   { return "ok", nil }

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var transitions []string
	b := New(Config{
		Name:        "reasoner",
		MaxFailures: 2,
		Cooldown:    time.Minute,
		Now:         clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_, err := Do(ctx, b, fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateClosed, b.State())

	_, err = Do(ctx, b, fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateOpen, b.State())

	_, err = Do(ctx, b, ok)
	assert.ErrorIs(t, err, ErrOpen)

	clock.now = clock.now.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())

	got, err := Do(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{
		"reasoner:closed->open",
		"reasoner:open->half-open",
		"reasoner:half-open->closed",
	}, transitions)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{MaxFailures: 1, Cooldown: time.Second, Now: clock.Now})
	ctx := context.Background()

	_, _ = Do(ctx, b, fail)
	clock.now = clock.now.Add(time.Second)
	_, err := Do(ctx, b, fail)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New(Config{MaxFailures: 2})
	ctx := context.Background()

	_, _ = Do(ctx, b, fail)
	_, _ = Do(ctx, b, ok)
	_, _ = Do(ctx, b, fail)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancellationDoesNotCount(t *testing.T) {
	b := New(Config{MaxFailures: 1})

	_, err := Do(context.Background(), b, func(context.Context) (string, error) {
		return "", context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err = Do(ctx, b, func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	b := New(Config{MaxFailures: 1, IsFailure: func(err error) bool { return !errors.Is(err, errUpstream) }})

	_, _ = Do(context.Background(), b, fail)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "", b.Name())
}
