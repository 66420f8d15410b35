package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"problem-relay/config"
	apperrors "problem-relay/errors"
	"problem-relay/web/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(url string) *Client {
	cfg := &config.Config{
		APIURL:            url,
		APIKey:            "sk-test",
		DefaultModel:      "o4-mini",
		MaxRetries:        3,
		RetryDelaySeconds: time.Millisecond,
		LLMRequestTimeout: 5 * time.Second,
	}
	return New(cfg, zap.NewNop())
}

func TestCompleteSendsBearerAndPayload(t *testing.T) {
	var got CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi \\frac{1}{2}"}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	comp, err := c.Complete(context.Background(), CompletionRequest{
		Messages:    []types.Message{{Role: types.RoleUser, Content: "hello"}},
		Temperature: 0.2,
		MaxTokens:   2048,
	})
	require.NoError(t, err)

	s, ok := comp.ContentString()
	require.True(t, ok)
	assert.Equal(t, `hi \frac{1}{2}`, s)
	assert.Equal(t, "o4-mini", got.Model)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
}

func TestCompleteMissingAPIKey(t *testing.T) {
	c := testClient("http://127.0.0.1:0")
	c.cfg.APIKey = ""
	_, err := c.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCompleteRetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"text":"ok"}]}`))
	}))
	defer srv.Close()

	comp, err := testClient(srv.URL).Complete(context.Background(), CompletionRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", comp.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCompleteNon2xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), CompletionRequest{Model: "m"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, map[string]any{"error": map[string]any{"message": "bad key"}}, apiErr.Detail())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCompleteMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), CompletionRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCompleteCanceledContext(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv.URL).Complete(ctx, CompletionRequest{Model: "m"})
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, apperrors.ErrLLMCommunication)
}

func TestCompleteUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Complete(context.Background(), CompletionRequest{Model: "m"})
	assert.ErrorIs(t, err, apperrors.ErrLLMCommunication)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"message_content", `{"choices":[{"message":{"content":"a"}}]}`, "a"},
		{"null_content", `{"choices":[{"message":{"content":null}}]}`, nil},
		{"legacy_text", `{"choices":[{"text":"b"}]}`, "b"},
		{"data_text", `{"data":[{"text":"c"}]}`, "c"},
		{"empty_text_falls_through", `{"choices":[{"text":""}],"data":[{"text":"d"}]}`, "d"},
		{"unknown_shape", `{"id":"x"}`, `{"id":"x"}`},
		{"non_string_content", `{"choices":[{"message":{"content":7}}]}`, float64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractContent([]byte(tt.body)))
		})
	}
}

func TestAPIErrorDetailPlainText(t *testing.T) {
	e := &APIError{StatusCode: 502, Status: "502 Bad Gateway", Body: []byte(" upstream down \n")}
	assert.Equal(t, "upstream down", e.Detail())
	assert.Contains(t, e.Error(), "502 Bad Gateway")
}
