package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	OIDC      OIDCConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OIDCConfig describes the external identity provider the service logs in against.
// Endpoint paths are resolved relative to IssuerURL.
type OIDCConfig struct {
	IssuerURL         string
	ClientID          string
	ClientSecret      string
	Scopes            []string
	AuthorizePath     string
	TokenPath         string
	IntrospectionPath string
	RevocationPath    string
}

type AuthConfig struct {
	// DefaultSessionTTL applies when the provider response carries no expires_in
	DefaultSessionTTL time.Duration
	// SweepInterval controls the background expired-session sweep
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "4000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("OIDC_SCOPES", "openid profile email")
	viper.SetDefault("OIDC_AUTHORIZE_PATH", "/authorize")
	viper.SetDefault("OIDC_TOKEN_PATH", "/oauth/token")
	viper.SetDefault("OIDC_INTROSPECTION_PATH", "/oauth/introspect")
	viper.SetDefault("OIDC_REVOCATION_PATH", "/oauth/revoke")
	viper.SetDefault("AUTH_DEFAULT_SESSION_TTL", 60)
	viper.SetDefault("AUTH_SWEEP_INTERVAL", 15)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		OIDC: OIDCConfig{
			IssuerURL:         viper.GetString("OIDC_ISSUER_URL"),
			ClientID:          viper.GetString("OIDC_CLIENT_ID"),
			ClientSecret:      os.Getenv("OIDC_CLIENT_SECRET"),
			Scopes:            strings.Fields(viper.GetString("OIDC_SCOPES")),
			AuthorizePath:     viper.GetString("OIDC_AUTHORIZE_PATH"),
			TokenPath:         viper.GetString("OIDC_TOKEN_PATH"),
			IntrospectionPath: viper.GetString("OIDC_INTROSPECTION_PATH"),
			RevocationPath:    viper.GetString("OIDC_REVOCATION_PATH"),
		},
		Auth: AuthConfig{
			DefaultSessionTTL: time.Duration(viper.GetInt("AUTH_DEFAULT_SESSION_TTL")) * time.Minute,
			SweepInterval:     time.Duration(viper.GetInt("AUTH_SWEEP_INTERVAL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.OIDC.ClientSecret == "" {
		log.Println("WARNING: OIDC_CLIENT_SECRET is not set; code exchange will fail against a real provider")
	}

	return cfg, nil
}
