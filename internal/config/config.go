package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Logger      LoggerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Badger      BadgerConfig
	Fingerprint FingerprintConfig
	Artifacts   ArtifactsConfig
	GCS         GCSConfig
	Signing     SigningConfig
	NATS        NATSConfig
	Kubernetes  KubernetesConfig
	Metrics     MetricsConfig
	Traversal   TraversalConfig
	Verify      VerifyConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DSN renders a postgres connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type BadgerConfig struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	GCInterval time.Duration
}

type FingerprintConfig struct {
	Algorithm string
}

type ArtifactsConfig struct {
	Root        string
	HTTPTimeout time.Duration
}

type GCSConfig struct {
	Enabled         bool
	CredentialsFile string
}

type SigningConfig struct {
	KeyPath string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type TraversalConfig struct {
	MaxDepth int
	Timeout  time.Duration
}

type VerifyConfig struct {
	Concurrency   int
	MaxRetries    int
	RetryInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", DriverBadger)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "aibom")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "aibom")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("BADGER_PATH", "./data/aibom")
	v.SetDefault("BADGER_IN_MEMORY", false)
	v.SetDefault("BADGER_SYNC_WRITES", true)
	v.SetDefault("BADGER_GC_INTERVAL", "10m")

	v.SetDefault("FINGERPRINT_ALGORITHM", "sha256")

	v.SetDefault("ARTIFACT_ROOT", "")
	v.SetDefault("ARTIFACT_HTTP_TIMEOUT", "5m")
	v.SetDefault("GCS_ENABLED", false)
	v.SetDefault("GCS_CREDENTIALS_FILE", "")

	v.SetDefault("SIGNING_KEY_PATH", "")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "aibom")

	v.SetDefault("K8S_ENABLED", false)
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_KUBECONFIG", "")
	v.SetDefault("K8S_DEFAULT_NAMESPACE", "model-serving")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("TRAVERSAL_MAX_DEPTH", 0)
	v.SetDefault("TRAVERSAL_TIMEOUT", "30s")

	v.SetDefault("VERIFY_CONCURRENCY", 4)
	v.SetDefault("VERIFY_MAX_RETRIES", 3)
	v.SetDefault("VERIFY_RETRY_INTERVAL", "200ms")
}

// Load reads configuration from the environment, optionally layered over the
// file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Env
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: duration(v, "SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: duration(v, "DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Badger: BadgerConfig{
			Path:       v.GetString("BADGER_PATH"),
			InMemory:   v.GetBool("BADGER_IN_MEMORY"),
			SyncWrites: v.GetBool("BADGER_SYNC_WRITES"),
			GCInterval: duration(v, "BADGER_GC_INTERVAL", 10*time.Minute),
		},
		Fingerprint: FingerprintConfig{
			Algorithm: strings.ToLower(v.GetString("FINGERPRINT_ALGORITHM")),
		},
		Artifacts: ArtifactsConfig{
			Root:        v.GetString("ARTIFACT_ROOT"),
			HTTPTimeout: duration(v, "ARTIFACT_HTTP_TIMEOUT", 5*time.Minute),
		},
		GCS: GCSConfig{
			Enabled:         v.GetBool("GCS_ENABLED"),
			CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
		},
		Signing: SigningConfig{
			KeyPath: v.GetString("SIGNING_KEY_PATH"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("K8S_ENABLED"),
			InCluster:      v.GetBool("K8S_IN_CLUSTER"),
			KubeConfigPath: v.GetString("K8S_KUBECONFIG"),
			DefaultNS:      v.GetString("K8S_DEFAULT_NAMESPACE"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		Traversal: TraversalConfig{
			MaxDepth: v.GetInt("TRAVERSAL_MAX_DEPTH"),
			Timeout:  duration(v, "TRAVERSAL_TIMEOUT", 30*time.Second),
		},
		Verify: VerifyConfig{
			Concurrency:   v.GetInt("VERIFY_CONCURRENCY"),
			MaxRetries:    v.GetInt("VERIFY_MAX_RETRIES"),
			RetryInterval: duration(v, "VERIFY_RETRY_INTERVAL", 200*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBadger, DriverPostgres:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.Storage.Driver, DriverBadger, DriverPostgres)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.Traversal.MaxDepth < 0 {
		return fmt.Errorf("TRAVERSAL_MAX_DEPTH must be >= 0, got %d", c.Traversal.MaxDepth)
	}
	return nil
}

func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}
