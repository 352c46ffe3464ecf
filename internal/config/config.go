package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	JWT       JWTConfig       `env:",prefix=JWT_"`
	Security  SecurityConfig  `env:",prefix="`
	Lockout   LockoutConfig   `env:",prefix=LOCKOUT_"`
	RateLimit RateLimitConfig `env:",prefix=RATE_LIMIT_"`
	Cleanup   CleanupConfig   `env:",prefix=CLEANUP_"`
	SMTP      SMTPConfig      `env:",prefix=SMTP_"`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=auth_service"`
	Password       string `env:"PASSWORD,default=auth_service_password"`
	DBName         string `env:"DB,default=auth_service_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret                       string   `env:"SECRET,required"`
	AccessTokenExpiry            Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry           Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
	RememberMeRefreshTokenExpiry Duration `env:"REMEMBER_ME_REFRESH_TOKEN_EXPIRY,default=30d"`
}

type SecurityConfig struct {
	BCryptCost                 int      `env:"BCRYPT_COST,default=12"`
	VerificationTokenExpiry    Duration `env:"VERIFICATION_TOKEN_EXPIRY,default=24h"`
	PasswordResetTokenExpiry   Duration `env:"PASSWORD_RESET_TOKEN_EXPIRY,default=1h"`
	RequireVerifiedEmailOnAuth bool     `env:"REQUIRE_VERIFIED_EMAIL_ON_AUTH,default=true"`
}

type LockoutConfig struct {
	MaxFailedAttempts int      `env:"MAX_FAILED_ATTEMPTS,default=5"`
	LockDuration      Duration `env:"LOCK_DURATION,default=30m"`
}

// RateLimitConfig tunes the sliding-window limiter. Backend "memory" keeps
// buckets in process memory; "redis" shares counters across instances without
// changing the check contract.
type RateLimitConfig struct {
	Backend        string   `env:"BACKEND,default=memory"`
	LoginMax       int      `env:"LOGIN_MAX,default=5"`
	LoginWindow    Duration `env:"LOGIN_WINDOW,default=1m"`
	RegisterMax    int      `env:"REGISTER_MAX,default=10"`
	RegisterWindow Duration `env:"REGISTER_WINDOW,default=1h"`
	RefreshMax     int      `env:"REFRESH_MAX,default=30"`
	RefreshWindow  Duration `env:"REFRESH_WINDOW,default=1m"`
	TokenMax       int      `env:"TOKEN_MAX,default=3"`
	TokenWindow    Duration `env:"TOKEN_WINDOW,default=1h"`
}

type CleanupConfig struct {
	TokenSweepInterval  Duration `env:"TOKEN_SWEEP_INTERVAL,default=24h"`
	LockSweepInterval   Duration `env:"LOCK_SWEEP_INTERVAL,default=5m"`
	BucketSweepInterval Duration `env:"BUCKET_SWEEP_INTERVAL,default=1h"`
	RevokedRetention    Duration `env:"REVOKED_RETENTION,default=30d"`
}

// SMTPConfig configures the outbound mail notifier. An empty host disables
// SMTP delivery and notifications are logged instead.
type SMTPConfig struct {
	Host     string `env:"HOST,default="`
	Port     string `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=no-reply@fintrack.app"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection URL used by the migration runner
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Enabled reports whether SMTP delivery is configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.RateLimit.Backend != "memory" && config.RateLimit.Backend != "redis" {
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be either 'memory' or 'redis'")
	}

	if config.Lockout.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("LOCKOUT_MAX_FAILED_ATTEMPTS must be positive")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
