package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"optimize/internal/experiment/cookie"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ExperimentsFile string
	LogLevel        slog.Level
	Cookies         Cookies
	WakeUp          bool
	SkipBots        bool
}

// Cookies configures assignment cookies.
type Cookies struct {
	Namespace string
	MaxAge    int
	Secure    bool
}

// Codec returns the cookie codec for this configuration.
func (c Cookies) Codec() cookie.Codec {
	return cookie.Codec{Namespace: c.Namespace, MaxAge: c.MaxAge}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) Server {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	maxAge, err := strconv.Atoi(get("OPTIMIZE_COOKIE_MAX_AGE", ""))
	if err != nil || maxAge <= 0 {
		maxAge = cookie.DefaultMaxAge
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}

	return Server{
		Addr:            get("OPTIMIZE_ADDR", ":8080"),
		ExperimentsFile: get("OPTIMIZE_EXPERIMENTS_FILE", ""),
		LogLevel:        level,
		Cookies: Cookies{
			Namespace: get("OPTIMIZE_COOKIE_NAMESPACE", cookie.DefaultNamespace),
			MaxAge:    maxAge,
			Secure:    get("OPTIMIZE_COOKIE_SECURE", "") == "true",
		},
		WakeUp:   get("OPTIMIZE_WAKE_UP", "") == "true",
		SkipBots: get("OPTIMIZE_SKIP_BOTS", "") == "true",
	}
}
