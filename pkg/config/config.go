package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Ingest       IngestConfig
	Jobs         JobsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FOLIOSCOPE_APP_ENV" required:"true"`
	Port         string `envconfig:"FOLIOSCOPE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FOLIOSCOPE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FOLIOSCOPE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FOLIOSCOPE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FOLIOSCOPE_DB_DSN"`
	Driver string `envconfig:"FOLIOSCOPE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FOLIOSCOPE_DB_HOST"`
	LegacyPort     int    `envconfig:"FOLIOSCOPE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOLIOSCOPE_DB_USER"`
	LegacyPassword string `envconfig:"FOLIOSCOPE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOLIOSCOPE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOLIOSCOPE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOLIOSCOPE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOLIOSCOPE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOLIOSCOPE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOLIOSCOPE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FOLIOSCOPE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FOLIOSCOPE_REDIS_ADDR"`
	Password     string        `envconfig:"FOLIOSCOPE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOLIOSCOPE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOLIOSCOPE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOLIOSCOPE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOLIOSCOPE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOLIOSCOPE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOLIOSCOPE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FOLIOSCOPE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FOLIOSCOPE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FOLIOSCOPE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"FOLIOSCOPE_PUBSUB_EVENTS_TOPIC" default:"fsc-interaction-events"`
	EventsSubscription string `envconfig:"FOLIOSCOPE_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset        string `envconfig:"FOLIOSCOPE_BIGQUERY_DATASET"`
	PatternsTable  string `envconfig:"FOLIOSCOPE_BIGQUERY_PATTERNS_TABLE" default:"path_patterns"`
	RetentionTable string `envconfig:"FOLIOSCOPE_BIGQUERY_RETENTION_TABLE" default:"retention_rows"`
}

// Enabled reports whether result export to BigQuery is configured at all.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}

type IngestConfig struct {
	BatchSize      int           `envconfig:"FOLIOSCOPE_INGEST_BATCH_SIZE" default:"500"`
	FlushTimeout   time.Duration `envconfig:"FOLIOSCOPE_INGEST_FLUSH_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"FOLIOSCOPE_INGEST_IDEMPOTENCY_TTL" default:"720h"`
}

type JobsConfig struct {
	Interval          time.Duration `envconfig:"FOLIOSCOPE_JOBS_INTERVAL" default:"24h"`
	MergeChunkSize    int           `envconfig:"FOLIOSCOPE_JOBS_MERGE_CHUNK_SIZE" default:"10000"`
	MergeChunkTimeout time.Duration `envconfig:"FOLIOSCOPE_JOBS_MERGE_CHUNK_TIMEOUT" default:"300s"`
	SequenceLength    int           `envconfig:"FOLIOSCOPE_JOBS_SEQUENCE_LENGTH" default:"5"`
	PatternTopK       int           `envconfig:"FOLIOSCOPE_JOBS_PATTERN_TOP_K" default:"10"`
	EventRetention    time.Duration `envconfig:"FOLIOSCOPE_JOBS_EVENT_RETENTION" default:"720h"`
	RetentionMonths   int           `envconfig:"FOLIOSCOPE_JOBS_RETENTION_MONTHS" default:"12"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FOLIOSCOPE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FOLIOSCOPE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
