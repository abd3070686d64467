package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config собирается один раз при старте и передаётся в конструкторы.
type Config struct {
	Port               string
	Env                string
	AllowedOrigins     []string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	// MaxImagePixels: предел ширина*высота одной картинки, проверяется до декодирования.
	MaxImagePixels int64
	// PageForm: формат страницы для pdfcpu ("A4", "Letter"...). Пусто = страница по размеру картинки.
	PageForm string
}

func Default() Config {
	return Config{
		Port:           "3000",
		Env:            EnvDevelopment,
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 50 << 20,
		MaxImagePixels: 100_000_000,
	}
}

// Load читает .env (если есть) и переменные окружения.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup строит конфиг из произвольного источника переменных.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get("PORT"); v != "" {
		cfg.Port = v
	}
	if v := get("APP_ENV"); v != "" {
		cfg.Env = strings.ToLower(v)
	}
	if v := get("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := get("MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		cfg.MaxUploadBytes = mb << 20
	}
	if v := get("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.RateLimitPerMinute = n
	}
	if v := get("MAX_IMAGE_MEGAPIXELS"); v != "" {
		mp, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_IMAGE_MEGAPIXELS: %w", err)
		}
		cfg.MaxImagePixels = int64(mp * 1_000_000)
	}
	cfg.PageForm = get("PDF_PAGE_FORM")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("APP_ENV must be one of development|production|test, got %q", c.Env)
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_MEGAPIXELS must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS is empty")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
