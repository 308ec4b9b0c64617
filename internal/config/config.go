package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr           string
		AllowedOrigins []string
	}
	Log struct {
		Level  string
		Format string
	}
	Database struct {
		Driver   string
		Path     string
		DSN      string
		MaxConns int
	}
	Auth struct {
		JWTSecret      string
		TokenTTL       time.Duration
		BcryptCost     int
		CookieName     string
		CookieDomain   string
		CookieSecure   bool
		CookieSameSite string
	}
	Twitter struct {
		BaseURL     string
		BearerToken string
		Timeout     time.Duration
	}
	Cache struct {
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		TTL           time.Duration
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables, an optional .env file
// and an optional config file in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file, never overrides the real environment

	v := viper.New()
	v.SetEnvPrefix("TAGMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8000")
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/tagmark.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "87600h")
	v.SetDefault("auth.bcryptcost", 0)
	v.SetDefault("auth.cookiename", "token")
	v.SetDefault("auth.cookiedomain", "")
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("auth.cookiesamesite", "lax")
	v.SetDefault("twitter.baseurl", "https://api.twitter.com")
	v.SetDefault("twitter.bearertoken", "")
	v.SetDefault("twitter.timeout", "10s")
	v.SetDefault("cache.redisaddr", "")
	v.SetDefault("cache.redispassword", "")
	v.SetDefault("cache.redisdb", 0)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "tweet-snapshots")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("database dsn is required for postgres")
	}

	return cfg, nil
}
