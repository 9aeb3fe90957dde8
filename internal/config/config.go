package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. The types reflect how the
// values are used in the application: strings for identifiers and
// secrets, ints for durations and costs, int64 for Etherion amounts.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	JWTSecret       string // secret used to sign JWTs
	AccessTTLMin    int    // access token time-to-live in minutes (default 24h)
	BcryptCost      int    // bcrypt cost for password hashing
	StartingBalance int64  // Etherions granted to new accounts
	BalanceCeiling  int64  // maximum representable balance, clamp target for credits
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message;
// the Etherion amounts and token TTL fall back to the storefront
// defaults when unset.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    optInt("ACCESS_TOKEN_TTL_MIN", 24*60),
		BcryptCost:      optInt("BCRYPT_COST", 10),
		StartingBalance: optInt64("STARTING_BALANCE", 1000),
		BalanceCeiling:  optInt64("BALANCE_CEILING", 1_000_000_000_000_000),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// optInt reads an optional integer environment variable, returning the
// default when unset and failing fast on junk values.
func optInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// optInt64 is optInt for Etherion amounts.
func optInt64(key string, def int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
