package config

import (
	"flag"
	"os"
	"time"

	"github.com/kairosweb/kairos/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-d string   PostgreSQL DSN
//	-y string   persistence strategy, "sql" or "orm"
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-e string   deployment environment
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	parseFlagsFromArgs(config, os.Args[1:])
}

func parseFlagsFromArgs(config *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-d", "-y", "-s", "-t", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DBType, "y", config.DBType, "persistence strategy (sql|orm)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Env, "e", config.Env, "deployment environment")

	tokenValidity := fs.Int("t", 0, "token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// The whole-minute flag overrides the duration only when actually passed;
	// otherwise a sub-minute TOKEN_TTL from the environment stays intact.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		}
	})
}
