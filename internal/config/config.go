package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	STORE_DRIVER_REDIS    = "redis"
	STORE_DRIVER_POSTGRES = "postgres"
	STORE_DRIVER_SQLITE   = "sqlite"
)

type DBConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type StoreConfig struct {
	Driver     string
	Path       string
	RedisAddr  string
	Postgres   DBConfig
	SQLitePath string
}

type MailConfig struct {
	From     string
	Pass     string
	Host     string
	Port     string
	DigestTo string
}

func (c MailConfig) Enabled() bool {
	return c.Host != "" && c.DigestTo != ""
}

type Config struct {
	Port           string
	AccessSecret   string
	LogPath        string
	Store          StoreConfig
	RabbitMQURL    string
	IngestEnabled  bool
	DigestInterval time.Duration
	Mail           MailConfig
}

// LoadEnv reads .env into the process environment. A missing file is fine,
// the variables may come from the real environment.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("app.port", ":8080")
	viper.SetDefault("app.log_path", "./app.log")
	viper.SetDefault("store.driver", STORE_DRIVER_SQLITE)
	viper.SetDefault("store.path", "notifications")
	viper.SetDefault("store.sqlite_path", "./notifications.db")
	viper.SetDefault("ingest.enabled", false)
	viper.SetDefault("jobs.digest_interval", 12*time.Hour)
	viper.SetDefault("mail.digest_to", "")
}

// Init reads app.yaml from dir. The file is optional; defaults cover a
// local sqlite-backed setup.
func Init(dir string) error {
	setDefaults()
	viper.AddConfigPath(dir)
	viper.SetConfigType("yaml")
	viper.SetConfigName("app")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// Get assembles the typed config from viper and the environment.
// Secrets and connection strings only ever come from the environment.
func Get() (*Config, error) {
	cfg := &Config{
		Port:         viper.GetString("app.port"),
		AccessSecret: os.Getenv("ACCESS_SECRET"),
		LogPath:      viper.GetString("app.log_path"),
		Store: StoreConfig{
			Driver:    viper.GetString("store.driver"),
			Path:      viper.GetString("store.path"),
			RedisAddr: os.Getenv("REDIS_ADDR"),
			Postgres: DBConfig{
				Username: os.Getenv("POSTGRES_USER"),
				Password: os.Getenv("POSTGRES_PASSWORD"),
				Host:     os.Getenv("POSTGRES_HOST"),
				Port:     os.Getenv("POSTGRES_PORT"),
				DBName:   os.Getenv("POSTGRES_DB"),
				SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
			},
			SQLitePath: viper.GetString("store.sqlite_path"),
		},
		RabbitMQURL:    os.Getenv("RABBITMQ_CONN_STRING"),
		IngestEnabled:  viper.GetBool("ingest.enabled"),
		DigestInterval: viper.GetDuration("jobs.digest_interval"),
		Mail: MailConfig{
			From:     os.Getenv("FROM"),
			Pass:     os.Getenv("PASS"),
			Host:     os.Getenv("HOST"),
			Port:     os.Getenv("PORT"),
			DigestTo: viper.GetString("mail.digest_to"),
		},
	}

	if cfg.Store.Path == "" {
		return nil, errors.New("store.path must not be empty")
	}
	switch cfg.Store.Driver {
	case STORE_DRIVER_REDIS:
		if cfg.Store.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required for the redis store")
		}
	case STORE_DRIVER_POSTGRES:
		if cfg.Store.Postgres.Host == "" {
			return nil, errors.New("POSTGRES_HOST is required for the postgres store")
		}
	case STORE_DRIVER_SQLITE:
	default:
		return nil, fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
	if cfg.IngestEnabled && cfg.RabbitMQURL == "" {
		return nil, errors.New("RABBITMQ_CONN_STRING is required when ingest is enabled")
	}
	if cfg.DigestInterval <= 0 {
		return nil, errors.New("jobs.digest_interval must be positive")
	}

	return cfg, nil
}
