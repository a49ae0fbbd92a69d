package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment ("development", "production")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBAutoMigrate  bool   // apply the embedded schema at startup
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// AllowSelfRoleAssign lets a user set their own role through
	// PUT /api/profiles/:id.  Only meant for demo deployments.
	AllowSelfRoleAssign bool

	FrontendURL      string
	CORSExtraOrigins []string

	AMQPURL            string        // empty disables the broker and audit entries go straight to MySQL
	AuditBuffer        int           // capacity of the in-process audit queue
	AuditRetentionDays int           // audit rows older than this are purged nightly, 0 keeps forever
	ShutdownTimeout    time.Duration // grace period for in-flight requests

	LogLevel string
}

// IsProduction reports whether error details must be hidden from clients.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	amqpURL := os.Getenv("RABBITMQ_URL")
	if amqpURL == "" {
		amqpURL = os.Getenv("AMQP_URL")
	}
	return Config{
		Env:                 envStr("APP_ENV", "development"),
		Port:                must("APP_PORT"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"), // empty allowed
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		DBAutoMigrate:       envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:           must("JWT_SECRET"),
		AccessTTLMin:        envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays:      envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:          envInt("BCRYPT_COST", 10),
		AllowSelfRoleAssign: envBool("ALLOW_SELF_ROLE_ASSIGN", false),
		FrontendURL:         os.Getenv("FRONTEND_URL"),
		CORSExtraOrigins:    splitList(os.Getenv("CORS_EXTRA_ORIGINS")),
		AMQPURL:             amqpURL,
		AuditBuffer:         envInt("AUDIT_BUFFER", 256),
		AuditRetentionDays:  envInt("AUDIT_RETENTION_DAYS", 90),
		ShutdownTimeout:     envDur("SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:            envStr("LOG_LEVEL", "info"),
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

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
