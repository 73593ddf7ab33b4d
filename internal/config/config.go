package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Env  string
	Port int
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the peer address is always the client address.
	TrustedProxies []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	// TokenTTL is the fixed session lifetime. There is no refresh token.
	TokenTTL time.Duration
	// StoreTimeout bounds the credential store lookup made on every request.
	StoreTimeout time.Duration
}

type RateLimitConfig struct {
	// Backend is "memory" (per-process budgets) or "redis" (shared across processes).
	Backend    string
	Window     time.Duration
	GeneralMax int
	AuthMax    int
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	defaultTokenTTL        = 24 * time.Hour
	defaultStoreTimeout    = 3 * time.Second
	defaultRateLimitWindow = 15 * time.Minute
	defaultGeneralMax      = 100
	defaultAuthMax         = 10
	defaultAdminEmail      = "admin@inspections.local"
	defaultAdminPassword   = "ChangeMe123!"
	minProductionSecretLen = 32
	maxPasswordBytes       = 72
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.App.TrustedProxies = optionalList("TRUSTED_PROXIES")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.RateLimit.Backend = strings.TrimSpace(os.Getenv("RATE_LIMIT_BACKEND"))
	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.RateLimit.Backend == RateLimitBackendRedis {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration and limit env vars are optional; defaults applied in Validate().
	{
		d, err := optionalDuration("JWT_TTL")
		parseErrs = appendErr(parseErrs, err)
		c.Auth.TokenTTL = d
	}
	{
		d, err := optionalDuration("AUTH_STORE_TIMEOUT")
		parseErrs = appendErr(parseErrs, err)
		c.Auth.StoreTimeout = d
	}
	{
		d, err := optionalDuration("RATE_LIMIT_WINDOW")
		parseErrs = appendErr(parseErrs, err)
		c.RateLimit.Window = d
	}
	{
		n, err := optionalInt("RATE_LIMIT_GENERAL_MAX")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.RateLimit.GeneralMax = n
	}
	{
		n, err := optionalInt("RATE_LIMIT_AUTH_MAX")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.RateLimit.AuthMax = n
	}

	c.Bootstrap.AdminEmail = strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))
	c.Bootstrap.AdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	for _, p := range c.App.TrustedProxies {
		if !isValidProxy(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entries must be IPs or CIDRs, got %q", p))
		}
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = RateLimitBackendMemory
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when RATE_LIMIT_BACKEND=redis"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be one of memory, redis, got %q", c.RateLimit.Backend))
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = defaultRateLimitWindow
	}
	if c.RateLimit.GeneralMax <= 0 {
		c.RateLimit.GeneralMax = defaultGeneralMax
	}
	if c.RateLimit.AuthMax <= 0 {
		c.RateLimit.AuthMax = defaultAuthMax
	}
	if c.RateLimit.AuthMax > c.RateLimit.GeneralMax {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH_MAX must not exceed RATE_LIMIT_GENERAL_MAX"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < minProductionSecretLen {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen))
		}
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = defaultTokenTTL
	}
	if c.Auth.StoreTimeout <= 0 {
		c.Auth.StoreTimeout = defaultStoreTimeout
	}

	if c.Bootstrap.AdminEmail == "" {
		c.Bootstrap.AdminEmail = defaultAdminEmail
	}
	if c.Bootstrap.AdminPassword == "" {
		c.Bootstrap.AdminPassword = defaultAdminPassword
	}
	if len(c.Bootstrap.AdminPassword) > maxPasswordBytes {
		errs = append(errs, fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at most %d bytes", maxPasswordBytes))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

// optionalList splits a comma separated env var, dropping blanks.
func optionalList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isValidProxy(v string) bool {
	if _, err := netip.ParseAddr(v); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(v)
	return err == nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	return n, appendErr(errs, err)
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
