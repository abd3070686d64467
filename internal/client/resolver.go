package client

import (
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

const FallbackAPIURL = "http://localhost:3000"

// Resolver возвращает базовый URL API или "" если ему нечего сказать.
type Resolver interface {
	Resolve() string
}

type ResolverFunc func() string

func (f ResolverFunc) Resolve() string { return f() }

// Static: значение, известное заранее (build-time или захардкоженное).
func Static(v string) Resolver {
	return ResolverFunc(func() string { return v })
}

// RuntimeConfig читает JSON вида {"API_URL": "..."}, который подкладывают при деплое.
// Нет файла или битый JSON, значит пусто и идём к следующему резолверу.
func RuntimeConfig(path string) Resolver {
	return ResolverFunc(func() string {
		if path == "" {
			return ""
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		var cfg struct {
			APIURL string `json:"API_URL"`
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return ""
		}
		return cfg.APIURL
	})
}

// ResolveAPIURL: первый непустой ответ по порядку.
func ResolveAPIURL(resolvers ...Resolver) string {
	for _, r := range resolvers {
		if r == nil {
			continue
		}
		if v := strings.TrimSpace(r.Resolve()); v != "" {
			return v
		}
	}
	return ""
}

// DefaultResolvers: runtime-конфиг, потом build-time значение, потом localhost.
func DefaultResolvers(runtimeConfigPath, buildTimeURL string) []Resolver {
	return []Resolver{
		RuntimeConfig(runtimeConfigPath),
		Static(buildTimeURL),
		Static(FallbackAPIURL),
	}
}

// Endpoint склеивает базу и путь; без базы остаётся относительный путь.
func Endpoint(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
