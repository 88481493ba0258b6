package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv               string
	AppPort              string
	APIPrefix            string
	AllowedOrigins       string
	DBDriver             string
	DBHost               string
	DBPort               string
	DBUser               string
	DBPassword           string
	DBName               string
	DBPath               string
	DBMaxIdleConns       int
	DBMaxOpenConns       int
	NatsURL              string
	JWTSecret            string
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	MediaRoot            string
	MaxUploadBytes       int64
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("%s not set, defaulting to %s", key, defaultValue)
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
		log.Printf("Invalid integer value for %s, defaulting to %d", key, defaultValue)
	}
	return defaultValue
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() Config {
	log.Println("Loading configuration...")

	// A missing .env file is fine; the process environment still applies.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not read .env file: %v", err)
	}

	return Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		AppPort:              getEnv("APP_PORT", "8080"),
		APIPrefix:            getEnv("API_PREFIX", "/api"),
		AllowedOrigins:       getEnv("ALLOWED_ORIGINS", "*"),
		DBDriver:             getEnv("DB_DRIVER", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "tasknotes"),
		DBPassword:           getEnv("DB_PASSWORD", "tasknotes"),
		DBName:               getEnv("DB_NAME", "tasknotes"),
		DBPath:               getEnv("DB_PATH", "tasknotes.db"),
		DBMaxIdleConns:       getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:       getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		NatsURL:              getEnv("NATS_URL", "nats://localhost:4222"),
		JWTSecret:            getEnv("JWT_SECRET", "dev-secret-key-change-this-in-production"),
		AccessTokenLifetime:  time.Duration(getEnvAsInt("ACCESS_TOKEN_MINUTES", 60)) * time.Minute,
		RefreshTokenLifetime: time.Duration(getEnvAsInt("REFRESH_TOKEN_HOURS", 24)) * time.Hour,
		MediaRoot:            getEnv("MEDIA_ROOT", "media"),
		MaxUploadBytes:       int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
	}
}
