package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"problem-relay/database"
	apperrors "problem-relay/errors"
	"problem-relay/llmclient"
	"problem-relay/metrics"
	"problem-relay/prompts"
	"problem-relay/utils"
	"problem-relay/web/format"
	"problem-relay/web/types"

	"go.uber.org/zap"
)

// Sampling parameters for the two relay operations.
const (
	TranslateTemperature = 0.1
	TranslateMaxTokens   = 32767
	ChatTemperature      = 0.2
	ChatMaxTokens        = 2048
)

// Completer is the upstream completion API.
type Completer interface {
	Complete(ctx context.Context, req llmclient.CompletionRequest) (*llmclient.Completion, error)
}

type RelayService struct {
	llm     Completer
	store   database.SessionStore
	metrics metrics.Recorder
	logger  *zap.Logger
}

func NewRelayService(llm Completer, store database.SessionStore, recorder metrics.Recorder, logger *zap.Logger) *RelayService {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &RelayService{
		llm:     llm,
		store:   store,
		metrics: recorder,
		logger:  logger,
	}
}

// Translate sends a problem statement through the fixed translation prompt
// and returns the normalized reply.
func (rs *RelayService) Translate(ctx context.Context, text, model string) (any, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", apperrors.ErrInvalidInput)
	}

	messages := []types.Message{
		{Role: types.RoleSystem, Content: prompts.TranslateSystem()},
		{Role: types.RoleUser, Content: text},
	}
	content, err := rs.complete(ctx, "translate", llmclient.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: TranslateTemperature,
		MaxTokens:   TranslateMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return rs.normalize(content), nil
}

// Chat forwards a conversation unchanged. When sessionID is set the request
// messages (not the reply) are persisted; a storage failure is logged only.
func (rs *RelayService) Chat(ctx context.Context, messages []types.Message, model, sessionID string) (any, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", apperrors.ErrInvalidInput)
	}

	if ce := rs.logger.Check(zap.DebugLevel, "Chat request received"); ce != nil {
		roles := make([]string, 0, min(len(messages), 20))
		for _, m := range messages[:min(len(messages), 20)] {
			roles = append(roles, m.Role)
		}
		ce.Write(zap.Int("messages", len(messages)), zap.String("model", model), zap.Strings("roles", roles))
	}

	content, err := rs.complete(ctx, "chat", llmclient.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: ChatTemperature,
		MaxTokens:   ChatMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if s, ok := content.(string); ok {
		rs.logger.Debug("Assistant content preview", zap.String("preview", utils.Preview(s, 400)))
	}

	result := rs.normalize(content)

	if sessionID != "" && rs.store != nil {
		if err := rs.store.Save(ctx, sessionID, messages); err != nil {
			rs.logger.Warn("Failed to save session",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	return result, nil
}

func (rs *RelayService) complete(ctx context.Context, operation string, req llmclient.CompletionRequest) (any, error) {
	start := time.Now()
	comp, err := rs.llm.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		rs.metrics.ObserveCompletion(operation, outcome(err), elapsed)
		return nil, err
	}
	rs.metrics.ObserveCompletion(operation, "ok", elapsed)
	return comp.Content, nil
}

func (rs *RelayService) normalize(content any) any {
	result := format.Normalize(content)
	switch {
	case format.Wrapped(content, result):
		rs.metrics.IncNormalization(metrics.NormalizeWrapped)
	case isString(content):
		rs.metrics.IncNormalization(metrics.NormalizeUnchanged)
	default:
		rs.metrics.IncNormalization(metrics.NormalizeSkipped)
	}
	return result
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func outcome(err error) string {
	var apiErr *llmclient.APIError
	switch {
	case errors.Is(err, llmclient.ErrMissingAPIKey):
		return "missing_key"
	case errors.As(err, &apiErr):
		return "upstream_status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case apperrors.IsLLMCommunication(err):
		return "unreachable"
	default:
		return "error"
	}
}
