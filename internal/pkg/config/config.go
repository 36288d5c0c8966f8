package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Agents    AgentsConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	FrontendURL string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
	IdleTxTimeout    time.Duration
}

// DSN carries session-level statement and idle-transaction timeouts so a
// wedged query cannot pin a connection from the pool indefinitely.
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
	if c.StatementTimeout > 0 || c.IdleTxTimeout > 0 {
		dsn += fmt.Sprintf(
			" options='-c statement_timeout=%d -c idle_in_transaction_session_timeout=%d'",
			c.StatementTimeout.Milliseconds(), c.IdleTxTimeout.Milliseconds(),
		)
	}
	return dsn
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AgentsConfig points at the agent execution service that actually runs
// tasks on behalf of the scheduler.
type AgentsConfig struct {
	BaseURL    string
	MaxTimeout time.Duration
}

type SchedulerConfig struct {
	PollInterval      time.Duration
	BatchSize         int
	MaxConcurrent     int
	DispatchPerSecond float64
	DispatchBurst     int
	StaleThreshold    time.Duration
	RetentionDays     int
	ShutdownTimeout   time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config

	// App
	cfg.App.Name = viper.GetString("app.name")
	cfg.App.Environment = viper.GetString("app.environment")
	cfg.App.Debug = viper.GetBool("app.debug")
	cfg.App.FrontendURL = viper.GetString("app.frontend_url")

	// Server
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.ReadTimeout = viper.GetDuration("server.read_timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server.write_timeout")
	cfg.Server.IdleTimeout = viper.GetDuration("server.idle_timeout")

	// Database
	cfg.Database.Host = viper.GetString("database.host")
	cfg.Database.Port = viper.GetInt("database.port")
	cfg.Database.User = viper.GetString("database.user")
	cfg.Database.Password = viper.GetString("database.password")
	cfg.Database.Name = viper.GetString("database.name")
	cfg.Database.SSLMode = viper.GetString("database.sslmode")
	cfg.Database.MaxOpenConns = viper.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = viper.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = viper.GetDuration("database.conn_max_lifetime")
	cfg.Database.StatementTimeout = viper.GetDuration("database.statement_timeout")
	cfg.Database.IdleTxTimeout = viper.GetDuration("database.idle_tx_timeout")

	// Redis
	cfg.Redis.Host = viper.GetString("redis.host")
	cfg.Redis.Port = viper.GetInt("redis.port")
	cfg.Redis.Password = viper.GetString("redis.password")
	cfg.Redis.DB = viper.GetInt("redis.db")

	// Agents
	cfg.Agents.BaseURL = viper.GetString("agents.base_url")
	cfg.Agents.MaxTimeout = viper.GetDuration("agents.max_timeout")

	// Scheduler
	cfg.Scheduler.PollInterval = viper.GetDuration("scheduler.poll_interval")
	cfg.Scheduler.BatchSize = viper.GetInt("scheduler.batch_size")
	cfg.Scheduler.MaxConcurrent = viper.GetInt("scheduler.max_concurrent")
	cfg.Scheduler.DispatchPerSecond = viper.GetFloat64("scheduler.dispatch_per_second")
	cfg.Scheduler.DispatchBurst = viper.GetInt("scheduler.dispatch_burst")
	cfg.Scheduler.StaleThreshold = viper.GetDuration("scheduler.stale_threshold")
	cfg.Scheduler.RetentionDays = viper.GetInt("scheduler.retention_days")
	cfg.Scheduler.ShutdownTimeout = viper.GetDuration("scheduler.shutdown_timeout")

	return &cfg, nil
}

func setDefaults() {
	// App
	viper.SetDefault("app.name", "temponest")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.frontend_url", "http://localhost:3000")

	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "temponest")
	viper.SetDefault("database.password", "temponest")
	viper.SetDefault("database.name", "temponest")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.statement_timeout", "30s")
	viper.SetDefault("database.idle_tx_timeout", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Agents
	viper.SetDefault("agents.base_url", "http://localhost:8001")
	viper.SetDefault("agents.max_timeout", "10m")

	// Scheduler
	viper.SetDefault("scheduler.poll_interval", "1s")
	viper.SetDefault("scheduler.batch_size", 100)
	viper.SetDefault("scheduler.max_concurrent", 10)
	viper.SetDefault("scheduler.dispatch_per_second", 50)
	viper.SetDefault("scheduler.dispatch_burst", 100)
	viper.SetDefault("scheduler.stale_threshold", "10m")
	viper.SetDefault("scheduler.retention_days", 30)
	viper.SetDefault("scheduler.shutdown_timeout", "30s")
}
