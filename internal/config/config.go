package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Supported host database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	LogLevel          string
	CORSOrigins       string
	DatabaseDriver    string
	DatabaseURL       string
	DatabaseMaxConns  int
	TablePrefix       string
	RedisURL          string
	EventsChannel     string
	NATSURL           string
	NATSSubject       string
	JWTSecret         string
	SessionCookie     string
	NonceSecret       string
	NonceTTL          time.Duration
	DashboardCacheTTL time.Duration
	RefreshRateLimit  int
	RefreshRateWindow time.Duration
	AdminRoles        []string
	TeacherRoles      []string
	StudentRoles      []string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Teacher Dashboard API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("database.driver", DriverMySQL)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("table_prefix", "wp_")
	v.SetDefault("nats.subject", "dashboard.access")
	v.SetDefault("session.cookie", "dashboard_session")
	v.SetDefault("nonce.ttl", "12h")
	// Cached payloads are keyed by role and user only, so membership changes
	// surface after the TTL. Caching is opt-in.
	v.SetDefault("dashboard.cache_ttl", "0s")
	v.SetDefault("rate_limit.refresh", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("roles.admin", "administrator")
	v.SetDefault("roles.teacher", "group_leader,school_teacher")
	v.SetDefault("roles.student", "subscriber,student,student_private,stm_lms_student")

	nonceTTL, err := parseDuration(v, "nonce.ttl")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		LogLevel:          strings.ToLower(v.GetString("log.level")),
		CORSOrigins:       v.GetString("cors.origins"),
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:       v.GetString("database.url"),
		DatabaseMaxConns:  v.GetInt("database.max_conns"),
		TablePrefix:       strings.TrimSpace(v.GetString("table_prefix")),
		RedisURL:          v.GetString("redis.url"),
		EventsChannel:     strings.TrimSpace(v.GetString("events.redis_channel")),
		NATSURL:           strings.TrimSpace(v.GetString("nats.url")),
		NATSSubject:       strings.TrimSpace(v.GetString("nats.subject")),
		JWTSecret:         v.GetString("jwt.secret"),
		SessionCookie:     v.GetString("session.cookie"),
		NonceSecret:       v.GetString("nonce.secret"),
		NonceTTL:          nonceTTL,
		DashboardCacheTTL: cacheTTL,
		RefreshRateLimit:  v.GetInt("rate_limit.refresh"),
		RefreshRateWindow: rateWindow,
		AdminRoles:        splitList(v.GetString("roles.admin")),
		TeacherRoles:      splitList(v.GetString("roles.teacher")),
		StudentRoles:      splitList(v.GetString("roles.student")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseMaxConns <= 0 {
		cfg.DatabaseMaxConns = 10
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" || c.NonceSecret == "" {
		return fmt.Errorf("jwt and nonce secrets must be provided")
	}

	switch c.DatabaseDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url must be provided")
	}

	if !tablePrefixPattern.MatchString(c.TablePrefix) {
		return fmt.Errorf("invalid table prefix %q", c.TablePrefix)
	}

	if c.NonceTTL <= 0 {
		return fmt.Errorf("nonce ttl must be positive")
	}
	if c.DashboardCacheTTL < 0 {
		return fmt.Errorf("dashboard cache ttl must not be negative")
	}

	if len(c.AdminRoles) == 0 || len(c.TeacherRoles) == 0 || len(c.StudentRoles) == 0 {
		return fmt.Errorf("admin, teacher and student role lists must not be empty")
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
