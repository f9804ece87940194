package config

import (
	"testing"

	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, ProviderGemini, cfg.ImageProvider)
	assert.Equal(t, DefaultPrompt, cfg.DefaultPrompt)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.GeminiModel)
	assert.Equal(t, "https://image.pollinations.ai", cfg.PollinationsBaseURL)
	assert.Empty(t, cfg.GeminiAPIKey)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.Debug)
	assert.Equal(t, logger.InfoLevel, cfg.LogLevel)
}

func TestFromEnv_MissingKeyIsNotAnError(t *testing.T) {
	// Без ключа сервер должен стартовать в деградированном режиме
	cfg, err := FromEnv(envFrom(map[string]string{"IMAGE_PROVIDER": "gemini"}))
	require.NoError(t, err)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "pollinations with size",
			vars: map[string]string{
				"IMAGE_PROVIDER":        "Pollinations",
				"POLLINATIONS_BASE_URL": "http://localhost:9000/",
				"POLLINATIONS_WIDTH":    "512",
				"POLLINATIONS_HEIGHT":   "768",
				"POLLINATIONS_MODEL":    "flux",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ProviderPollinations, cfg.ImageProvider)
				assert.Equal(t, "http://localhost:9000", cfg.PollinationsBaseURL)
				assert.Equal(t, 512, cfg.PollinationsWidth)
				assert.Equal(t, 768, cfg.PollinationsHeight)
				assert.Equal(t, "flux", cfg.PollinationsModel)
			},
		},
		{
			name: "debug and telegram",
			vars: map[string]string{
				"APP_DEBUG":          "true",
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"DEFAULT_PROMPT":     "a lighthouse",
				"PORT":               "8081",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, logger.DebugLevel, cfg.LogLevel)
				assert.True(t, cfg.TelegramEnabled())
				assert.Equal(t, "a lighthouse", cfg.DefaultPrompt)
				assert.Equal(t, ":8081", cfg.Addr())
			},
		},
		{
			name: "log level from env",
			vars: map[string]string{"LOG_LEVEL": "warn"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, logger.WarnLevel, cfg.LogLevel)
			},
		},
		{
			name: "debug flag overrides log level",
			vars: map[string]string{"LOG_LEVEL": "error", "APP_DEBUG": "1"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, logger.DebugLevel, cfg.LogLevel)
			},
		},
		{
			name:    "bad log level",
			vars:    map[string]string{"LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			vars:    map[string]string{"IMAGE_PROVIDER": "dalle"},
			wantErr: true,
		},
		{
			name:    "bad width",
			vars:    map[string]string{"POLLINATIONS_WIDTH": "wide"},
			wantErr: true,
		},
		{
			name:    "negative height",
			vars:    map[string]string{"POLLINATIONS_HEIGHT": "-1"},
			wantErr: true,
		},
		{
			name:    "bad port",
			vars:    map[string]string{"PORT": "http"},
			wantErr: true,
		},
		{
			name:    "bad debug flag",
			vars:    map[string]string{"APP_DEBUG": "maybe"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv(envFrom(tt.vars))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
