package reasoner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/pkg/metrics"
)

const cacheKeyPrefix = "xray:reasoner:"

// Cached stores answers of an inner Reasoner in Redis
type Cached struct {
	inner     Reasoner
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCached wraps inner. namespace separates answers from different models.
func NewCached(inner Reasoner, client redis.UniversalClient, namespace string, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		inner:     inner,
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger,
	}
}

// Reason returns the cached answer for prompt or asks the inner reasoner.
// Redis errors degrade to an uncached call.
func (c *Cached) Reason(ctx context.Context, prompt string) (json.RawMessage, error) {
	key := c.key(prompt)

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.RecordCacheLookup(true)
		return json.RawMessage(cached), nil
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheLookup(false)
	default:
		c.logger.Warn("reasoner cache read failed", zap.Error(err))
	}

	answer, err := c.inner.Reason(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, key, []byte(answer), c.ttl).Err(); err != nil {
		c.logger.Warn("reasoner cache write failed", zap.Error(err))
	}
	return answer, nil
}

func (c *Cached) key(prompt string) string {
	sum := sha256.Sum256([]byte(c.namespace + "\x00" + prompt))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
