package api_config

import (
	"time"

	"github.com/NordCoder/Stockpulse/internal/obs"
	pg "github.com/NordCoder/Stockpulse/internal/repository/postgres"
	rds "github.com/NordCoder/Stockpulse/internal/repository/redis"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig(app App) obs.LogConfig {
	return obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "stockpulse/" + app.Name,
		Env:    app.Env,
		Ver:    app.Version,
	}
}

type Auth struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	BootstrapAdmins []string      `mapstructure:"bootstrap_admins"`
}

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Store struct {
	Driver   string     `mapstructure:"driver"`
	Postgres pg.Config  `mapstructure:"postgres"`
	Redis    rds.Config `mapstructure:"redis"`
}

type Kafka struct {
	Enable         bool          `mapstructure:"enable"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	Buffer         int           `mapstructure:"buffer"`
}

type Audit struct {
	Kafka Kafka `mapstructure:"kafka"`
}

type Config struct {
	App    App    `mapstructure:"app"`
	Server Server `mapstructure:"server"`
	OTEL   OTEL   `mapstructure:"otel"`
	Log    Log    `mapstructure:"log"`
	Auth   Auth   `mapstructure:"auth"`
	Store  Store  `mapstructure:"store"`
	Audit  Audit  `mapstructure:"audit"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

func (c *Config) Validate() error {
	switch {
	case c.Auth.JWTSecret == "":
		return ErrConfig("auth.jwt_secret is required")
	case c.Auth.AccessTTL <= 0:
		return ErrConfig("auth.access_ttl must be positive")
	case c.Auth.RefreshTTL <= c.Auth.AccessTTL:
		return ErrConfig("auth.refresh_ttl must be longer than auth.access_ttl")
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return ErrConfig("store.postgres.dsn is required")
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return ErrConfig("store.redis.addr is required")
		}
	case DriverMemory:
	default:
		return ErrConfig("store.driver must be one of postgres, redis, memory")
	}
	if c.Audit.Kafka.Enable && (len(c.Audit.Kafka.Brokers) == 0 || c.Audit.Kafka.Topic == "") {
		return ErrConfig("audit.kafka needs brokers and topic when enabled")
	}
	return nil
}
