package config

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LLM_PROVIDER", "GOOGLE_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_TEMPERATURE",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model", "ARK_TEMPERATURE", "ARK_TOP_P",
		"ARK_MAX_TOKENS", "SESSION_IDLE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.GeminiModel)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.NoError(t, cfg.AI.Validate())
}

func TestLoadPortWithHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                 "80 80",
		"GEMINI_TEMPERATURE":   "warm",
		"ARK_MAX_TOKENS":       "many",
		"SESSION_IDLE_TIMEOUT": "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateMissingGoogleKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.AI.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrMissingCredentials, errors.Cause(err))
}

func TestValidateArkCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("Model", "doubao")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.AI.Validate())

	cfg.AI.AccessKey = "ak"
	cfg.AI.SecretKey = "sk"
	assert.NoError(t, cfg.AI.Validate())
}

func TestValidateUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "local")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.AI.Validate())
}
