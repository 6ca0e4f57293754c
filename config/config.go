package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Link policies decide how many provider accounts of a linked item are persisted.
const (
	LinkPolicyKeepFirst = "keep_first"
	LinkPolicyKeepAll   = "keep_all"
)

// Sync policies decide how transactions are fetched from the provider.
const (
	SyncPolicyFullWindow = "full_window"
	SyncPolicyCursor     = "cursor"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Plaid     PlaidConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	Debug       bool          `mapstructure:"debug"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Port        string        `mapstructure:"port"`
	FrontendURL string        `mapstructure:"frontend_url"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type JWTConfig struct {
	AccessSecret   string        `mapstructure:"access_secret"`
	RefreshSecret  string        `mapstructure:"refresh_secret"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	RevokeOnLogout bool          `mapstructure:"revoke_on_logout"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
}

type CookieConfig struct {
	Domain string `mapstructure:"domain"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

type PlaidConfig struct {
	ClientID            string        `mapstructure:"client_id"`
	Secret              string        `mapstructure:"secret"`
	Environment         string        `mapstructure:"environment"`
	BaseURL             string        `mapstructure:"base_url"`
	Products            []string      `mapstructure:"products"`
	CountryCodes        []string      `mapstructure:"country_codes"`
	RedirectURI         string        `mapstructure:"redirect_uri"`
	WebhookURL          string        `mapstructure:"webhook_url"`
	LinkPolicy          string        `mapstructure:"link_policy"`
	SyncPolicy          string        `mapstructure:"sync_policy"`
	SyncWindowDays      int           `mapstructure:"sync_window_days"`
	PageSize            int           `mapstructure:"page_size"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ResolveInstitution  bool          `mapstructure:"resolve_institution"`
	InstitutionCacheTTL time.Duration `mapstructure:"institution_cache_ttl"`
}

type RateLimitConfig struct {
	Request  int `mapstructure:"request"`
	Duration int `mapstructure:"duration"`
}

var plaidHosts = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "NimbusWolf"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "3001"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			Timeout:     getEnvAsDuration("APP_TIMEOUT", 30*time.Second),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "nimbuswolf"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "nimbuswolf.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getEnvAsDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		},
		JWT: JWTConfig{
			AccessSecret:   getEnv("JWT_SECRET", ""),
			RefreshSecret:  getEnv("JWT_REFRESH_SECRET", ""),
			AccessTTL:      getEnvAsDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:     getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			RevokeOnLogout: getEnvAsBool("AUTH_REVOKE_ON_LOGOUT", false),
			BcryptCost:     getEnvAsInt("BCRYPT_COST", 12),
		},
		Cookie: CookieConfig{
			Domain: getEnv("COOKIE_DOMAIN", ""),
		},
		Plaid: PlaidConfig{
			ClientID:            getEnv("PLAID_CLIENT_ID", ""),
			Secret:              getEnv("PLAID_SECRET", ""),
			Environment:         getEnv("PLAID_ENV", "sandbox"),
			BaseURL:             getEnv("PLAID_BASE_URL", ""),
			Products:            getEnvAsList("PLAID_PRODUCTS", []string{"transactions"}),
			CountryCodes:        getEnvAsList("PLAID_COUNTRY_CODES", []string{"US"}),
			RedirectURI:         getEnv("PLAID_REDIRECT_URI", ""),
			WebhookURL:          getEnv("PLAID_WEBHOOK_URL", ""),
			LinkPolicy:          getEnv("PLAID_LINK_POLICY", LinkPolicyKeepFirst),
			SyncPolicy:          getEnv("PLAID_SYNC_POLICY", SyncPolicyFullWindow),
			SyncWindowDays:      getEnvAsInt("PLAID_SYNC_WINDOW_DAYS", 30),
			PageSize:            getEnvAsInt("PLAID_PAGE_SIZE", 500),
			Timeout:             getEnvAsDuration("PLAID_TIMEOUT", 30*time.Second),
			ResolveInstitution:  getEnvAsBool("PLAID_RESOLVE_INSTITUTION", true),
			InstitutionCacheTTL: getEnvAsDuration("PLAID_INSTITUTION_CACHE_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Request:  getEnvAsInt("RATE_LIMIT_MAX_REQUEST", 100),
			Duration: getEnvAsInt("RATE_LIMIT_DURATION", 60),
		},
	}

	if config.Plaid.BaseURL == "" {
		config.Plaid.BaseURL = plaidHosts[config.Plaid.Environment]
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must both be set"))
	} else if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}

	switch c.Plaid.LinkPolicy {
	case LinkPolicyKeepFirst, LinkPolicyKeepAll:
	default:
		errs = append(errs, fmt.Errorf("unknown PLAID_LINK_POLICY %q", c.Plaid.LinkPolicy))
	}

	switch c.Plaid.SyncPolicy {
	case SyncPolicyFullWindow, SyncPolicyCursor:
	default:
		errs = append(errs, fmt.Errorf("unknown PLAID_SYNC_POLICY %q", c.Plaid.SyncPolicy))
	}

	if c.Plaid.BaseURL == "" {
		errs = append(errs, fmt.Errorf("unknown PLAID_ENV %q and no PLAID_BASE_URL", c.Plaid.Environment))
	}

	if c.Plaid.SyncWindowDays <= 0 {
		errs = append(errs, errors.New("PLAID_SYNC_WINDOW_DAYS must be positive"))
	}

	if c.JWT.RevokeOnLogout && !c.Redis.Enabled {
		errs = append(errs, errors.New("AUTH_REVOKE_ON_LOGOUT requires REDIS_ENABLED"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
