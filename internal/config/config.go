package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type FrontendConfig struct {
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	LogMode bool   `mapstructure:"log_mode"`
}

type SessionConfig struct {
	Secret       string `mapstructure:"secret"`
	CookieName   string `mapstructure:"cookie_name"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	Store        string `mapstructure:"store"` // memory / database / redis
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// TTL returns the session lifetime, at least one hour.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLHours <= 0 {
		return time.Hour
	}
	return time.Duration(s.TTLHours) * time.Hour
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RealtimeConfig struct {
	RequireSession bool `mapstructure:"require_session"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type LimiterConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BootstrapConfig describes the admin created when no person exists yet.
type BootstrapConfig struct {
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Frontend  FrontendConfig  `mapstructure:"frontend"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Security  SecurityConfig  `mapstructure:"security"`
	Limiter   LimiterConfig   `mapstructure:"limiter"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("frontend.path", "./pai2024-vue/dist")
	v.SetDefault("database.url", "mongodb://localhost:27017/pai2024")
	v.SetDefault("database.log_mode", false)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "sid")
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("realtime.require_session", true)
	v.SetDefault("security.bcrypt_cost", 10)
	v.SetDefault("limiter.enabled", true)
	v.SetDefault("limiter.rps", 2)
	v.SetDefault("limiter.burst", 5)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("bootstrap.login", "admin")
	v.SetDefault("bootstrap.password", "")
}

// newViper returns a viper holding the defaults with PAI_ environment
// overrides enabled.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path (json, yaml or toml by extension).
// The file is optional: when it is missing or cannot be parsed the returned
// Config holds the defaults and err says why the file was ignored, so the
// caller can log it and carry on. Environment variables prefixed with PAI_
// (PAI_SERVER_PORT, PAI_DATABASE_URL, ...) override both, and a .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()

	var fileErr error
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				fileErr = fmt.Errorf("config file %s not found", path)
			} else {
				fileErr = fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		// a file with wrongly typed values; keep defaults and environment
		c = Config{}
		if derr := newViper().Unmarshal(&c); derr != nil {
			return nil, fmt.Errorf("unmarshal defaults: %w", derr)
		}
		return &c, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, fileErr
}
