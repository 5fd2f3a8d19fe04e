package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	TimeoutSeconds int      `mapstructure:"timeoutSeconds"`
	StaticDir      string   `mapstructure:"staticDir"`
	CORSOrigins    []string `mapstructure:"corsOrigins"`
	RateLimitRPS   float64  `mapstructure:"rateLimitRps"`
	RateLimitBurst int      `mapstructure:"rateLimitBurst"`
	Timezone       string   `mapstructure:"timezone"`
}

func (c ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location is the clinic's local zone; "today" on the dashboard is computed in it.
func (c ServerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
	MaxIdleConns    int    `mapstructure:"maxIdleConns"`
	ConnMaxLifetime int    `mapstructure:"connMaxLifetimeMinutes"`
	AutoMigrate     bool   `mapstructure:"autoMigrate"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	ResetURL string `mapstructure:"resetUrl"`
}

// BootstrapConfig names the admin created on first start. Empty disables it.
type BootstrapConfig struct {
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminName     string `mapstructure:"adminName"`
	AdminPassword string `mapstructure:"adminPassword"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.timeoutSeconds", 30)
	v.SetDefault("server.staticDir", "./web/dist")
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("server.rateLimitRps", 50)
	v.SetDefault("server.rateLimitBurst", 100)
	v.SetDefault("server.timezone", "UTC")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetimeMinutes", 30)
	v.SetDefault("database.autoMigrate", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("email.host", "localhost")
	v.SetDefault("email.port", 1025)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "no-reply@clinic.local")
	v.SetDefault("email.resetUrl", "http://localhost:8080/reset-password")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("bootstrap.adminEmail", "")
	v.SetDefault("bootstrap.adminName", "Administrator")
	v.SetDefault("bootstrap.adminPassword", "")
}

// LoadConfig reads config.yaml from the working directory or ./config and
// lets CLINIC_* environment variables override any key, e.g.
// CLINIC_DATABASE_HOST for database.host.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must be set")
	}
	if c.JWT.ExpiryHours <= 0 {
		return errors.New("jwt.expiry_hours must be positive")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if _, err := c.Server.Location(); err != nil {
		return fmt.Errorf("invalid server.timezone: %w", err)
	}
	return nil
}
