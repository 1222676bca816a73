package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from the process environment. A .env file
// in the working directory is loaded first when present; real environment
// variables win over .env entries (godotenv does not overwrite existing
// variables).
//
// Recognized variables: PORT, APP_ENV, DATABASE_DSN, DB_HOST, DB_PORT,
// DB_USER, DB_PASSWORD, DB_NAME, DB_TYPE, JWT_SECRET, TOKEN_TTL,
// FRONTEND_URL, STATIC_DIR, DB_MAX_CONNS, QUERY_TIMEOUT, S3_BUCKET,
// S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("PORT"); ok {
		config.Addr = ":" + v
	}
	setString(&config.Env, "APP_ENV")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.DBHost, "DB_HOST")
	setString(&config.DBPort, "DB_PORT")
	setString(&config.DBUser, "DB_USER")
	setString(&config.DBPassword, "DB_PASSWORD")
	setString(&config.DBName, "DB_NAME")
	setString(&config.DBType, "DB_TYPE")
	setString(&config.SecretKey, "JWT_SECRET")
	setString(&config.FrontendURL, "FRONTEND_URL")
	setString(&config.StaticDir, "STATIC_DIR")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	setString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setString(&config.S3SecretKey, "S3_SECRET_KEY")

	if v, ok := os.LookupEnv("TOKEN_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.TokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv("QUERY_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.QueryTimeout = d
		}
	}
	if v, ok := os.LookupEnv("DB_MAX_CONNS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.DBMaxOpenConns = n
		}
	}
}
