// Пакет config — загрузка и валидация конфигурации Search Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Search Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль PostgreSQL
	DBPassword string
	// Режим SSL (disable, require, verify-ca, verify-full)
	DBSSLMode string

	// --- Кэш результатов ---

	// Максимальное количество записей в LRU-кэше результатов
	CacheSize int
	// TTL записи кэша результатов
	CacheTTL time.Duration

	// --- Live-источник (Books API) ---

	// Базовый URL Books API
	BooksAPIURL string
	// Ключ API (опционально, пустая строка — анонимные запросы)
	BooksAPIKey string
	// Таймаут обращения к Books API
	BooksAPITimeout time.Duration
	// Дневной лимит обращений к Books API
	BooksAPIDailyLimit int
	// Максимум томов в одном ответе Books API (максимум API — 40)
	BooksAPIMaxResults int

	// --- Резолвер ---

	// Размер дополняющей выборки augmentation-уровня
	AugmentLimit int
	// Бюджет фоновых side-effect операций (write-behind, touch)
	SideEffectTimeout time.Duration

	// --- Dependency monitoring ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool

	// --- JWT (опционально) ---

	// URL JWKS endpoint. Пустая строка — аутентификация отключена
	JWKSURL string
	// Ожидаемый issuer токенов (опционально)
	JWTIssuer string
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:cyclop,funlen // последовательная загрузка переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("SM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("SM_PORT: %w", err)
	}

	// SM_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("SM_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("SM_LOG_LEVEL: %w", err)
	}

	// SM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	// SM_HTTP_READ_TIMEOUT — таймаут чтения (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("SM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_READ_TIMEOUT: %w", err)
	}

	// SM_HTTP_WRITE_TIMEOUT — таймаут записи (по умолчанию 60s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("SM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// SM_HTTP_IDLE_TIMEOUT — таймаут простоя (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("SM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	// SM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// SM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SM_DB_PORT: %w", err)
	}

	// SM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SM_DB_USER")
	if err != nil {
		return nil, err
	}

	// SM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SM_DB_SSL_MODE", "disable")

	// --- Кэш результатов ---

	// SM_CACHE_SIZE — максимум записей в кэше (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("SM_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("SM_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("SM_CACHE_SIZE: значение должно быть > 0")
	}

	// SM_CACHE_TTL — TTL записи кэша (по умолчанию 24h)
	cfg.CacheTTL, err = getEnvDuration("SM_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SM_CACHE_TTL: %w", err)
	}

	// --- Live-источник ---

	// SM_BOOKS_API_URL — базовый URL Books API
	cfg.BooksAPIURL = strings.TrimRight(
		getEnvDefault("SM_BOOKS_API_URL", "https://www.googleapis.com/books/v1"), "/")

	// SM_BOOKS_API_KEY — ключ API (опционально)
	cfg.BooksAPIKey = getEnvDefault("SM_BOOKS_API_KEY", "")

	// SM_BOOKS_API_TIMEOUT — таймаут обращения (по умолчанию 10s)
	cfg.BooksAPITimeout, err = getEnvDuration("SM_BOOKS_API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_BOOKS_API_TIMEOUT: %w", err)
	}

	// SM_BOOKS_API_DAILY_LIMIT — дневной лимит обращений (по умолчанию 600)
	cfg.BooksAPIDailyLimit, err = getEnvInt("SM_BOOKS_API_DAILY_LIMIT", 600)
	if err != nil {
		return nil, fmt.Errorf("SM_BOOKS_API_DAILY_LIMIT: %w", err)
	}
	if cfg.BooksAPIDailyLimit < 0 {
		return nil, fmt.Errorf("SM_BOOKS_API_DAILY_LIMIT: значение должно быть >= 0")
	}

	// SM_BOOKS_API_MAX_RESULTS — максимум томов в ответе (по умолчанию 40)
	cfg.BooksAPIMaxResults, err = getEnvInt("SM_BOOKS_API_MAX_RESULTS", 40)
	if err != nil {
		return nil, fmt.Errorf("SM_BOOKS_API_MAX_RESULTS: %w", err)
	}
	if cfg.BooksAPIMaxResults <= 0 || cfg.BooksAPIMaxResults > 40 {
		return nil, fmt.Errorf("SM_BOOKS_API_MAX_RESULTS: допустимый диапазон 1-40")
	}

	// --- Резолвер ---

	// SM_AUGMENT_LIMIT — размер дополняющей выборки (по умолчанию 10)
	cfg.AugmentLimit, err = getEnvInt("SM_AUGMENT_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("SM_AUGMENT_LIMIT: %w", err)
	}

	// SM_SIDE_EFFECT_TIMEOUT — бюджет фоновых операций (по умолчанию 3s)
	cfg.SideEffectTimeout, err = getEnvDuration("SM_SIDE_EFFECT_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_SIDE_EFFECT_TIMEOUT: %w", err)
	}

	// --- Dependency monitoring ---

	// SM_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию kittylit)
	cfg.DephealthGroup = getEnvDefault("SM_DEPHEALTH_GROUP", "kittylit")

	// SM_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 30s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SM_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// DEPHEALTH_ISENTRY — лейбл isentry=yes (по умолчанию false)
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- JWT (опционально) ---

	// SM_JWKS_URL — URL JWKS endpoint (пустая строка — auth отключён)
	cfg.JWKSURL = getEnvDefault("SM_JWKS_URL", "")

	// SM_JWT_ISSUER — ожидаемый issuer (опционально)
	cfg.JWTIssuer = getEnvDefault("SM_JWT_ISSUER", "")

	// SM_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("SM_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для лейблов dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// AuthEnabled — true, если настроена JWT-аутентификация.
func (c *Config) AuthEnabled() bool {
	return c.JWKSURL != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
