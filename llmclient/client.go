package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"problem-relay/config"
	apperrors "problem-relay/errors"
	"problem-relay/web/types"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	// ErrMissingAPIKey is returned before any request when no key is configured.
	ErrMissingAPIKey = errors.New("missing YUN_API_KEY in environment")

	// ErrMalformedResponse is returned when a 2xx body is not JSON.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// APIError carries a non-2xx upstream response.
type APIError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm server status %s: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// Detail returns the upstream body as decoded JSON when possible, otherwise
// as a plain string.
func (e *APIError) Detail() any {
	if gjson.ValidBytes(e.Body) {
		return gjson.ParseBytes(e.Body).Value()
	}
	return strings.TrimSpace(string(e.Body))
}

// CompletionRequest is the chat completions payload.
type CompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

// Completion is the decoded upstream reply. Content keeps the JSON type it
// had in the body: usually a string, nil for JSON null.
type Completion struct {
	Content any
	Raw     []byte
}

// ContentString returns Content when it is a string.
func (c *Completion) ContentString() (string, bool) {
	s, ok := c.Content.(string)
	return s, ok
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
	}
}

// Complete posts a chat completion and extracts the reply content.
func (c *Client) Complete(ctx context.Context, creq CompletionRequest) (*Completion, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if creq.Model == "" {
		creq.Model = c.cfg.DefaultModel
	}

	jsonBody, err := json.Marshal(creq)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		r, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			// Do not retry on context cancellation/deadline
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn("Completion request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		} else if retryable(r.StatusCode) && attempt < c.cfg.MaxRetries-1 {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			lastErr = fmt.Errorf("llm server status %s", r.Status)
			c.logger.Warn("LLM service unavailable, retrying", zap.Int("attempt", attempt+1), zap.Int("status", r.StatusCode))
		} else {
			resp = r
			break
		}

		if attempt < c.cfg.MaxRetries-1 {
			if err := c.backoffSleep(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no response from LLM server: %w", apperrors.ErrLLMCommunication, lastErr)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrLLMCommunication, "read chat response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: bodyBytes}
	}
	if !gjson.ValidBytes(bodyBytes) {
		return nil, ErrMalformedResponse
	}

	return &Completion{Content: ExtractContent(bodyBytes), Raw: bodyBytes}, nil
}

// ExtractContent pulls the reply text out of the response shapes that
// OpenAI-compatible providers return. Unknown shapes yield the raw body.
func ExtractContent(body []byte) any {
	root := gjson.ParseBytes(body)
	if msg := root.Get("choices.0.message"); truthy(msg) {
		return msg.Get("content").Value()
	}
	if text := root.Get("choices.0.text"); truthy(text) {
		return text.Value()
	}
	if text := root.Get("data.0.text"); truthy(text) {
		return text.Value()
	}
	return strings.TrimSpace(root.Raw)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	default:
		return r.Exists()
	}
}

func retryable(status int) bool {
	return status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests
}

func (c *Client) backoffSleep(ctx context.Context, attempt int) error {
	// Exponential backoff with configurable jitter and cap
	base := c.cfg.RetryDelaySeconds
	if base <= 0 {
		base = time.Second
	}
	d := base * time.Duration(1<<attempt)
	maxWait := c.cfg.LLMBackoffMaxSeconds
	if maxWait > 0 && d > maxWait {
		d = maxWait
	}
	jitterRatio := c.cfg.LLMBackoffJitterRatio
	if jitterRatio < 0 || jitterRatio > 1 {
		jitterRatio = 0.1
	}
	jitter := time.Duration(float64(d) * jitterRatio)
	if jitter > 0 {
		d = d - jitter + time.Duration(rand.Int63n(int64(2*jitter)+1))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
