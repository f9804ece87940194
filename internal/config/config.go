// Package config содержит конфигурацию приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	// ProviderGemini выбирает адаптер Gemini API
	ProviderGemini = "gemini"
	// ProviderPollinations выбирает публичный эндпоинт Pollinations
	ProviderPollinations = "pollinations"

	// DefaultPrompt подставляется, когда клиент не прислал промпт
	DefaultPrompt = "A detailed, photorealistic cyborg cat painting a picture"

	defaultPort             = "5000"
	defaultGeminiModel      = "gemini-2.5-flash-image"
	defaultPollinationsBase = "https://image.pollinations.ai"
	defaultServiceName      = "prompt-image-server"
)

var supportedProviders = []string{ProviderGemini, ProviderPollinations}

// Config представляет структуру конфигурации приложения
type Config struct {
	// Порт HTTP сервера
	Port string
	// Имя провайдера изображений: gemini или pollinations
	ImageProvider string
	// Промпт по умолчанию
	DefaultPrompt string

	// Ключ Gemini API. Пустое значение переводит сервер в деградированный режим
	GeminiAPIKey string
	GeminiModel  string

	PollinationsBaseURL string
	PollinationsWidth   int
	PollinationsHeight  int
	PollinationsModel   string

	// Токен для Telegram бота, опционален
	TelegramToken string

	// APP_DEBUG включение дебаг уровня, перекрывает LOG_LEVEL
	Debug bool
	// LOG_LEVEL: debug, info, warn, error
	LogLevel    logger.Level
	Env         string
	GitCommit   string
	ServiceName string
}

// New создает новый экземпляр конфигурации
// Загружает переменные окружения из .env файла
// Если файл не найден, берет переменные из окружения
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию через переданную функцию поиска переменных.
// Отсутствие ключа провайдера ошибкой не считается.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:                env("PORT", defaultPort),
		ImageProvider:       strings.ToLower(env("IMAGE_PROVIDER", ProviderGemini)),
		DefaultPrompt:       env("DEFAULT_PROMPT", DefaultPrompt),
		GeminiAPIKey:        env("GEMINI_API_KEY", ""),
		GeminiModel:         env("GEMINI_MODEL", defaultGeminiModel),
		PollinationsBaseURL: strings.TrimRight(env("POLLINATIONS_BASE_URL", defaultPollinationsBase), "/"),
		PollinationsModel:   env("POLLINATIONS_MODEL", ""),
		TelegramToken:       env("TELEGRAM_BOT_TOKEN", ""),
		Env:                 env("APP_ENV", ""),
		GitCommit:           env("GIT_COMMIT", ""),
		ServiceName:         env("SERVICE_NAME", defaultServiceName),
	}

	if !lo.Contains(supportedProviders, cfg.ImageProvider) {
		return nil, fmt.Errorf("IMAGE_PROVIDER %q not supported, use one of %s",
			cfg.ImageProvider, strings.Join(supportedProviders, ", "))
	}

	var err error
	if cfg.PollinationsWidth, err = envInt(getenv, "POLLINATIONS_WIDTH"); err != nil {
		return nil, err
	}
	if cfg.PollinationsHeight, err = envInt(getenv, "POLLINATIONS_HEIGHT"); err != nil {
		return nil, err
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be a number: %w", err)
	}

	if raw := strings.TrimSpace(getenv("APP_DEBUG")); raw != "" {
		cfg.Debug, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("APP_DEBUG must be a boolean: %w", err)
		}
	}

	if cfg.LogLevel, err = logger.ParseLevel(getenv("LOG_LEVEL")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = logger.DebugLevel
	}

	return cfg, nil
}

// Addr возвращает адрес для HTTP сервера
func (c *Config) Addr() string {
	return ":" + c.Port
}

// TelegramEnabled сообщает, нужно ли поднимать Telegram бота
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func envInt(getenv func(string) string, key string) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number, got %q", key, raw)
	}
	return n, nil
}
