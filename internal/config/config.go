package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/personal_cloud/internal/models"
)

type Config struct {
	DB_HOST           string
	DB_PORT           string
	DB_USER           string
	DB_PASSWORD       string
	DB_NAME           string
	SECRET_KEY        string
	UPLOAD_FOLDER     string
	GOOGLE_CLIENT_ID  string
	KAFKA_ADDRESS     string
	SERVER_PORT       string
	LOG_LEVEL         string
	ACCESS_TOKEN_TTL  time.Duration
	REFRESH_TOKEN_TTL time.Duration
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:           os.Getenv("DB_HOST"),
		DB_PORT:           os.Getenv("DB_PORT"),
		DB_USER:           os.Getenv("DB_USER"),
		DB_PASSWORD:       os.Getenv("DB_PASSWORD"),
		DB_NAME:           os.Getenv("DB_NAME"),
		SECRET_KEY:        os.Getenv("SECRET_KEY"),
		UPLOAD_FOLDER:     os.Getenv("UPLOAD_FOLDER"),
		GOOGLE_CLIENT_ID:  os.Getenv("GOOGLE_CLIENT_ID"),
		KAFKA_ADDRESS:     os.Getenv("KAFKA_ADDRESS"),
		SERVER_PORT:       envDefault("SERVER_PORT", "8080"),
		LOG_LEVEL:         envDefault("LOG_LEVEL", "info"),
		ACCESS_TOKEN_TTL:  envDurationDefault("ACCESS_TOKEN_TTL", time.Hour),
		REFRESH_TOKEN_TTL: envDurationDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour),
	}

	if config.SECRET_KEY == "" {
		return nil, fmt.Errorf("missing required env SECRET_KEY")
	}
	if config.UPLOAD_FOLDER == "" {
		return nil, fmt.Errorf("missing required env UPLOAD_FOLDER")
	}

	return config, nil
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	// TranslateError turns driver uniqueness violations into
	// gorm.ErrDuplicatedKey, which the repo maps to conflicts.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return db, nil
}
