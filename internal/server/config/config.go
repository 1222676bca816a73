// Package config handles server configuration: struct defaults, an
// environment overlay (including an optional .env file), and command-line
// flags, applied in that order.
package config

import "time"

// DB strategy selectors, see Config.DBType.
const (
	DBTypeSQL = "sql" // raw SQL over database/sql + pgx
	DBTypeORM = "orm" // gorm
)

// DefaultBcryptCost is the password hashing cost used in production.
const DefaultBcryptCost = 10

// Config holds runtime settings for the Kairos backend.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - Env: deployment environment ("development" or "production").
//   - DatabaseDSN: PostgreSQL DSN; when empty it is composed from the
//     discrete DBHost/DBPort/DBUser/DBPassword/DBName fields.
//   - DBType: persistence strategy, DBTypeSQL or DBTypeORM. Exactly one
//     strategy is active per process.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the test
//     default in prod.
//   - TokenValidityDuration: bearer token lifetime.
//   - FrontendURL: allowed CORS origin.
//   - StaticDir: SPA build directory served in production when set.
//   - DBMaxOpenConns / QueryTimeout: connection-pool bound and the
//     per-operation deadline that keeps connection acquisition from waiting
//     indefinitely under load.
//   - S3*: optional S3-compatible object storage for avatar uploads; the
//     avatar endpoints are mounted only when S3Bucket is set.
type Config struct {
	Addr                  string
	Env                   string
	DatabaseDSN           string
	DBHost                string
	DBPort                string
	DBUser                string
	DBPassword            string
	DBName                string
	DBType                string
	SecretKey             string
	TokenValidityDuration time.Duration
	BcryptCost            int
	FrontendURL           string
	StaticDir             string
	DBMaxOpenConns        int
	QueryTimeout          time.Duration
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
	S3AccessKey           string
	S3SecretKey           string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Addr = ":5000"
	c.Env = "development"
	c.DBHost = "localhost"
	c.DBPort = "5432"
	c.DBUser = "postgres"
	c.DBPassword = "postgres"
	c.DBName = "kairos_db"
	c.DBType = DBTypeSQL
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 1 * time.Hour
	c.BcryptCost = DefaultBcryptCost
	c.FrontendURL = "http://localhost:3000"
	c.DBMaxOpenConns = 10
	c.QueryTimeout = 5 * time.Second
	c.S3Region = "us-east-1"
}

// DSN returns the effective database DSN: the explicit DatabaseDSN when set,
// otherwise one composed from the discrete DB_* fields.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=disable"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (and an optional .env file) and finally from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
