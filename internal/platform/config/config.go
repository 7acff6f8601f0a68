// Package config loads service configuration from defaults, an optional
// config file and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Auth     AuthConfig
	Policy   PolicyConfig
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
}

type ServerConfig struct {
	Port            int
	GRPCPort        int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig selects the storage driver. "memory" keeps everything in
// process and ignores the connection settings.
type DatabaseConfig struct {
	Driver      string
	Migrate     bool
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnTime time.Duration
	MaxIdleTime time.Duration
	HealthCheck time.Duration
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PolicyConfig points at the policy rules file. NearLimitBand overrides the
// file's band when non-zero.
type PolicyConfig struct {
	File          string
	NearLimitBand float64
}

// Load reads configuration. Environment variables use the upper-cased key
// with dots replaced by underscores, e.g. SERVER_PORT or DATABASE_HOST.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config.file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:        v.GetString("service.name"),
			Version:     v.GetString("service.version"),
			Environment: v.GetString("service.environment"),
			LogLevel:    v.GetString("log.level"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			GRPCPort:        v.GetInt("server.grpc_port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
		},
		Database: DatabaseConfig{
			Driver:      v.GetString("database.driver"),
			Migrate:     v.GetBool("database.migrate"),
			Host:        v.GetString("database.host"),
			Port:        v.GetInt("database.port"),
			User:        v.GetString("database.user"),
			Password:    v.GetString("database.password"),
			Database:    v.GetString("database.name"),
			SSLMode:     v.GetString("database.sslmode"),
			MaxConns:    v.GetInt32("database.max_conns"),
			MinConns:    v.GetInt32("database.min_conns"),
			MaxConnTime: v.GetDuration("database.max_conn_time"),
			MaxIdleTime: v.GetDuration("database.max_idle_time"),
			HealthCheck: v.GetDuration("database.health_check"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("nats.url"),
			SubjectPrefix: v.GetString("nats.subject_prefix"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Policy: PolicyConfig{
			File:          v.GetString("policy.file"),
			NearLimitBand: v.GetFloat64("policy.near_limit_band"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config.file", "")

	v.SetDefault("service.name", "be-relocation-cases")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.environment", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("server.port", 8086)
	v.SetDefault("server.grpc_port", 9086)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 20*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "relocation")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_time", time.Hour)
	v.SetDefault("database.max_idle_time", 30*time.Minute)
	v.SetDefault("database.health_check", time.Minute)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "notifications.relocation")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "relopass")

	v.SetDefault("policy.file", "")
	v.SetDefault("policy.near_limit_band", 0.0)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if c.Policy.NearLimitBand < 0 || c.Policy.NearLimitBand >= 1 {
		return fmt.Errorf("policy.near_limit_band must be in [0,1), got %v", c.Policy.NearLimitBand)
	}
	if c.Service.Environment != "development" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required outside development")
	}
	return nil
}
