package reasoner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReasoner is a mock implementation of Reasoner
type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) Reason(ctx context.Context, prompt string) (json.RawMessage, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func setupCache(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCached_HitSkipsUpstream(t *testing.T) {
	mr, client := setupCache(t)
	inner := new(MockReasoner)
	inner.On("Reason", mock.Anything, "find a bottle").
		Return(json.RawMessage(`{"keywords":["bottle"]}`), nil).Once()

	c := NewCached(inner, client, "gpt-4o-mini", time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := c.Reason(ctx, "find a bottle")
	require.NoError(t, err)
	second, err := c.Reason(ctx, "find a bottle")
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	inner.AssertExpectations(t)

	key := c.key("find a bottle")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestCached_NamespaceSeparatesKeys(t *testing.T) {
	_, client := setupCache(t)
	a := NewCached(nil, client, "model-a", time.Minute, nil)
	b := NewCached(nil, client, "model-b", time.Minute, nil)

	assert.NotEqual(t, a.key("p"), b.key("p"))
	assert.Equal(t, a.key("p"), a.key("p"))
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	mr, client := setupCache(t)
	cause := errors.New("upstream down")
	inner := new(MockReasoner)
	inner.On("Reason", mock.Anything, "x").Return(nil, cause).Twice()

	c := NewCached(inner, client, "m", time.Minute, zap.NewNop())
	_, err := c.Reason(context.Background(), "x")
	assert.ErrorIs(t, err, cause)
	_, err = c.Reason(context.Background(), "x")
	assert.ErrorIs(t, err, cause)

	inner.AssertExpectations(t)
	assert.Empty(t, mr.Keys())
}

func TestCached_RedisDownFallsThrough(t *testing.T) {
	mr, client := setupCache(t)
	mr.Close()

	inner := new(MockReasoner)
	inner.On("Reason", mock.Anything, "x").Return(json.RawMessage(`{"ok":true}`), nil).Once()

	c := NewCached(inner, client, "m", time.Minute, zap.NewNop())
	got, err := c.Reason(context.Background(), "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))
	inner.AssertExpectations(t)
}
