// Package config загружает настройки сервисов из переменных окружения.
//
// Перед чтением переменных подгружается .env файл (путь из ENV_FILE,
// по умолчанию ./.env), если он существует. Уже заданные переменные
// окружения .env не перезаписывает.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Значения по умолчанию.
const (
	DefaultAPIPort          = "8188"
	DefaultWorkerPort       = "8189"
	DefaultInferenceURL     = "http://localhost:7860"
	DefaultInferenceTimeout = 300 * time.Second
	DefaultOutputDir        = "outputs"
	DefaultRetentionCron    = "@hourly"
	DefaultHistoryMaxAge    = 168 * time.Hour
	DefaultCORSOrigin       = "*"
	DefaultEnvFile          = ".env"
)

// ErrInvalidValue — переменная окружения имеет некорректное значение.
var ErrInvalidValue = errors.New("invalid config value")

// Config — настройки API, worker'а и движка.
type Config struct {
	APIPort    string
	WorkerPort string

	// DBURL — строка подключения к PostgreSQL. Пусто — история отключена.
	DBURL string

	// RabbitMQURL — адрес брокера. Пусто — асинхронная очередь отключена.
	RabbitMQURL string

	InferenceURL     string
	InferenceTimeout time.Duration
	OutputDir        string

	// StrictLinks — неразрешённая ссылка прерывает запуск.
	StrictLinks bool

	// RetentionCron — расписание очистки истории (5 полей или @descriptor).
	RetentionCron string

	// HistoryMaxAge — возраст, после которого завершённые runs удаляются.
	HistoryMaxAge time.Duration

	CORSAllowOrigin string
}

// Load подгружает .env и читает конфигурацию из окружения процесса.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	return FromEnv(os.Getenv)
}

// loadEnvFile загружает .env, если файл существует.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// FromEnv читает конфигурацию через getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		APIPort:          r.str("API_PORT", DefaultAPIPort),
		WorkerPort:       r.str("WORKER_PORT", DefaultWorkerPort),
		DBURL:            r.str("DB_URL", ""),
		RabbitMQURL:      r.str("RABBITMQ_URL", ""),
		InferenceURL:     r.str("INFERENCE_URL", DefaultInferenceURL),
		InferenceTimeout: r.seconds("INFERENCE_TIMEOUT_SEC", DefaultInferenceTimeout),
		OutputDir:        r.str("OUTPUT_DIR", DefaultOutputDir),
		StrictLinks:      r.boolean("STRICT_LINKS", false),
		RetentionCron:    r.str("HISTORY_RETENTION_CRON", DefaultRetentionCron),
		HistoryMaxAge:    r.hours("HISTORY_MAX_AGE_HOURS", DefaultHistoryMaxAge),
		CORSAllowOrigin:  r.str("CORS_ALLOW_ORIGIN", DefaultCORSOrigin),
	}

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	return cfg, nil
}

// HistoryEnabled возвращает true, если настроена БД.
func (c *Config) HistoryEnabled() bool {
	return c.DBURL != ""
}

// QueueEnabled возвращает true, если настроен брокер.
func (c *Config) QueueEnabled() bool {
	return c.RabbitMQURL != ""
}

// reader читает переменные и копит ошибки разбора.
type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *reader) positiveInt(key string) (int, bool) {
	v := r.getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: expected positive integer", ErrInvalidValue, key, v))
		return 0, false
	}
	return n, true
}

func (r *reader) seconds(key string, def time.Duration) time.Duration {
	if n, ok := r.positiveInt(key); ok {
		return time.Duration(n) * time.Second
	}
	return def
}

func (r *reader) hours(key string, def time.Duration) time.Duration {
	if n, ok := r.positiveInt(key); ok {
		return time.Duration(n) * time.Hour
	}
	return def
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: expected boolean", ErrInvalidValue, key, v))
		return def
	}
	return b
}
