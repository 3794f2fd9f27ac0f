package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName           string
	Environment           string
	LogLevel              string
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AnalyticsTTLSeconds   int
	AuthSecret            string
	AccessTokenTTLMinutes int
	DefaultTaxPercent     float64
	BusinessTimezone      string
	DotEnvLoaded          bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; it never overrides variables that
// are already set.
func Load() Config {
	dotEnvLoaded := godotenv.Load() == nil

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("ANALYTICS_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	taxPercent, err := strconv.ParseFloat(getEnv("DEFAULT_TAX_PERCENT", "15"), 64)
	if err != nil || taxPercent < 0 {
		taxPercent = 15
	}

	cfg := Config{
		ServiceName:           getEnv("SERVICE_NAME", "salonledger"),
		Environment:           getEnv("APP_ENV", "development"),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AnalyticsTTLSeconds:   ttl,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		DefaultTaxPercent:     taxPercent,
		BusinessTimezone:      getEnv("BUSINESS_TIMEZONE", "Africa/Johannesburg"),
		DotEnvLoaded:          dotEnvLoaded,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AnalyticsTTL() time.Duration {
	return time.Duration(c.AnalyticsTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves the business time zone used for sale dates, falling back
// to UTC when the zone is unknown.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC, fmt.Errorf("load time zone %q: %w", c.BusinessTimezone, err)
	}
	return loc, nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
