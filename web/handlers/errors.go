package handlers

import (
	"errors"
	"net/http"

	apperrors "problem-relay/errors"
	"problem-relay/llmclient"
	"problem-relay/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a user-friendly message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError))
		logger.Error("Request failed", fields...)
	}
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError returns a client error (no logging needed for validation errors)
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithUpstreamError maps a failed completion to the relay's error
// body. operation names the endpoint, e.g. "Translation".
func respondWithUpstreamError(c *gin.Context, err error, operation string, logger *zap.Logger) {
	var apiErr *llmclient.APIError
	switch {
	case apperrors.IsInvalidInput(err):
		respondWithClientError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, llmclient.ErrMissingAPIKey):
		respondWithError(c, http.StatusInternalServerError, err, "Server: missing YUN_API_KEY in environment", logger)
		return
	}

	if apperrors.IsLLMCommunication(err) {
		logger.Error(operation+" error: completion API unreachable", zap.Error(err))
	} else {
		logger.Error(operation+" error", zap.Error(err))
	}
	detail := any(err.Error())
	if errors.As(err, &apiErr) {
		detail = apiErr.Detail()
	}
	c.JSON(http.StatusInternalServerError, types.ErrorResponse{
		Error:  operation + " failed",
		Detail: detail,
	})
}

// requestLogger returns the request-scoped logger set by the logging
// middleware, falling back to fallback.
func requestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return fallback
}
