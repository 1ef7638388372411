package reasoner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
)

func chatServer(t *testing.T, status int, content string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]any
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "test-model", req["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
}

func testConfig(url string) config.ReasonerConfig {
	return config.ReasonerConfig{
		BaseURL:         url,
		Model:           "test-model",
		APIKey:          "test-key",
		Timeout:         5 * time.Second,
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	}
}

func TestOpenAI_Reason(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, http.StatusOK, `{"keywords":["bottle"],"reasoning":"noun"}`, &calls)
	defer srv.Close()

	o := NewOpenAI(testConfig(srv.URL), zap.NewNop())
	got, err := Decode[keywords](context.Background(), o, "find a bottle")
	require.NoError(t, err)
	assert.Equal(t, []string{"bottle"}, got.Keywords)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "test-model", o.Model())
}

func TestOpenAI_ProseWrappedAnswer(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, http.StatusOK, "Here you go: {\"score\": 0.8, \"reasoning\": \"fits\"} hope it helps", &calls)
	defer srv.Close()

	raw, err := NewOpenAI(testConfig(srv.URL), nil).Reason(context.Background(), "rate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 0.8, "reasoning": "fits"}`, string(raw))
}

func TestOpenAI_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, http.StatusInternalServerError, "", &calls)
	defer srv.Close()

	o := NewOpenAI(testConfig(srv.URL), zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := o.Reason(context.Background(), "x")
		assert.ErrorIs(t, err, ErrReasonerFailure)
	}
	assert.Equal(t, int32(2), calls.Load())
}
