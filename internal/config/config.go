// Package config loads runtime settings from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string

	AEMET struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
		RPS     float64
		Burst   int
	}
}

// LoadDotEnv loads .env files into the environment. A missing file is not
// an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
}

// DatabasePath returns DATABASE_PATH, or mitiempo.db when unset.
func DatabasePath() string {
	return getEnv("DATABASE_PATH", "mitiempo.db")
}

func Load() *Config {
	c := &Config{}
	c.Port = getEnv("PORT", "8080")
	c.DatabasePath = DatabasePath()

	c.AEMET.APIKey = getEnv("AEMET_API_KEY", "")
	c.AEMET.BaseURL = getEnv("AEMET_BASE_URL", "https://opendata.aemet.es/")
	c.AEMET.Timeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	// OpenData allows about 50 requests a minute per key
	c.AEMET.RPS = getEnvFloat("AEMET_RPS", 0.8)
	c.AEMET.Burst = getEnvInt("AEMET_BURST", 2)

	if c.AEMET.APIKey == "" {
		log.Println("[WARN] AEMET_API_KEY is not set, forecasts will be rejected upstream")
	}

	return c
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("[WARN] invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
		log.Printf("[WARN] invalid %s=%q, using %g", key, v, def)
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("[WARN] invalid %s=%q, using %s", key, v, def)
	}
	return def
}
