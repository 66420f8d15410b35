package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNormalize(t *testing.T) {
	cfg := &Config{
		LogLevel:            "info",
		DebugLog:            true,
		SessionBackend:      " Redis ",
		LLMRequestTimeout:   600,
		RetryDelaySeconds:   2,
		CleanupInterval:     24,
		SessionRetentionAge: 720,
		CORSAllowedOrigins:  []string{"http://a.test, http://b.test", " "},
	}
	cfg.normalize()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.LLMRequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.RetryDelaySeconds)
	assert.Equal(t, 24*time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionRetentionAge)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARNING", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
