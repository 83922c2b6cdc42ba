package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // durations for the scheduler windows
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required variables are enforced by must()
// and mustInt(); the scheduler windows have sensible defaults and only
// need to be set when the product rules change.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	SchedulerTick      time.Duration // reminder scheduler tick interval
	EntryWindow        time.Duration // how far before planned entry the reminder fires
	ExitWindow         time.Duration // how far before planned exit the reminder fires
	OverdueGrace       time.Duration // how far past planned exit a session counts as overdue
	ReservationExpiry  time.Duration // how far past planned entry an unredeemed reservation expires
	NotifyBuffer       int           // outbound notification buffer size
}

// Load reads configuration values from environment variables and returns
// a Config.  Missing required values cause the program to exit with a
// fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		SchedulerTick:     envDur("SCHEDULER_TICK", time.Minute),
		EntryWindow:       envDur("ENTRY_REMINDER_WINDOW", 10*time.Minute),
		ExitWindow:        envDur("EXIT_REMINDER_WINDOW", 10*time.Minute),
		OverdueGrace:      envDur("OVERDUE_GRACE", 15*time.Minute),
		ReservationExpiry: envDur("RESERVATION_EXPIRY", 30*time.Minute),
		NotifyBuffer:      envInt("NOTIFY_BUFFER", 256),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envInt reads an optional integer with a default.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envDur reads an optional duration ("90s", "2m") with a default.
func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
