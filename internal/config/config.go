package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  It is constructed once in main and passed by
// value into the components that need it; there is no ambient global state.
type Config struct {
    Env         string // application environment ("dev" or "prod")
    Port        string // HTTP port to listen on
    DBUser      string // database username
    DBPass      string // database password (optional)
    DBHost      string // database host address
    DBPort      string // database port number
    DBName      string // database name
    JWTSecret   string // secret used to sign JWTs
    TokenTTLMin int    // access token time-to-live in minutes
    BcryptCost  int    // bcrypt cost for password hashing
    SMTPHost    string // SMTP relay host (empty disables mail delivery)
    SMTPPort    int    // SMTP relay port
    SMTPUser    string // SMTP username
    SMTPPass    string // SMTP password
    MailFrom    string // sender address for outgoing mail
}

// Dev reports whether the service runs in development mode.  Internal error
// detail is only echoed to clients in dev.
func (c Config) Dev() bool { return c.Env == "dev" }

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:         must("APP_ENV"),
        Port:        must("APP_PORT"),
        DBUser:      must("DB_USER"),
        DBPass:      os.Getenv("DB_PASS"), // empty allowed
        DBHost:      must("DB_HOST"),
        DBPort:      must("DB_PORT"),
        DBName:      must("DB_NAME"),
        JWTSecret:   must("JWT_SECRET"),
        TokenTTLMin: intOr("TOKEN_TTL_MIN", 120),
        BcryptCost:  intOr("BCRYPT_COST", 10),
        SMTPHost:    os.Getenv("SMTP_HOST"),
        SMTPPort:    intOr("SMTP_PORT", 587),
        SMTPUser:    os.Getenv("SMTP_USER"),
        SMTPPass:    os.Getenv("SMTP_PASS"),
        MailFrom:    os.Getenv("MAIL_FROM"),
    }
    // The historical fallback value is a configuration error outside dev.
    if cfg.JWTSecret == "secret" && !cfg.Dev() {
        log.Fatal("JWT_SECRET is set to the insecure default; refusing to start")
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

// intOr retrieves an optional integer environment variable, falling back to
// def when unset.  A value that does not parse is fatal.
func intOr(key string, def int) int {
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
