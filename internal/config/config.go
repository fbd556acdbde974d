package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBDriver       string // "mysql" or "sqlite"
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    SQLitePath     string // database file when DBDriver is sqlite
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing
    AdminUsername  string // default administrator seeded at startup
    AdminEmail     string
    AdminPassword  string
    LogFormat      string // "json" or "text"
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.  MySQL settings are only required when
// DB_DRIVER is mysql.
func Load() Config {
    cfg := Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           envStr("APP_PORT", "8080"),
        DBDriver:       envStr("DB_DRIVER", "mysql"),
        DBPass:         os.Getenv("DB_PASS"),
        SQLitePath:     envStr("SQLITE_PATH", "parking.db"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:     envInt("BCRYPT_COST", 12),
        AdminUsername:  envStr("ADMIN_USERNAME", "admin"),
        AdminEmail:     envStr("ADMIN_EMAIL", "admin@parking.local"),
        AdminPassword:  envStr("ADMIN_PASSWORD", "admin123"),
        LogFormat:      envStr("LOG_FORMAT", "json"),
    }
    switch cfg.DBDriver {
    case "mysql":
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case "sqlite":
    default:
        log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
    }
    return cfg
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
