package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// DevAuthSecret signs sessions when AUTH_HMAC_SECRET is unset.
const DevAuthSecret = "supersecret-dev-key"

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogLevel string

	DBDriver string
	DBDSN    string

	BlobBasePath string // assignment uploads
	StaticDir    string // dashboard pages (index.html, leaderboard.html, ...)

	AuthSecret         string
	SessionTTL         time.Duration
	CookieSecure       bool
	EnableRegistration bool

	AdminUser     string
	AdminPassword string // plaintext, hashed on startup; empty disables seeding

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Leaderboard cache; empty addr disables redis.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LeaderboardTTL time.Duration
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":5000"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),
		StaticDir:    envOr("STATIC_DIR", "./public"),

		AuthSecret:         envOr("AUTH_HMAC_SECRET", DevAuthSecret),
		SessionTTL:         envDuration("SESSION_TTL", 8*time.Hour),
		CookieSecure:       envBool("COOKIE_SECURE", mode == ModeOnline),
		EnableRegistration: envBool("ENABLE_REGISTRATION", true),

		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://results.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5000"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		LeaderboardTTL: envDuration("LEADERBOARD_TTL", 30*time.Second),
	}
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
