package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Locale    LocaleConfig
	Migration MigrationConfig
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
	Env          string `envconfig:"PIMASSET_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"PIMASSET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIMASSET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PIMASSET_DB_DSN"`
	Driver string `envconfig:"PIMASSET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PIMASSET_DB_HOST"`
	Port     int    `envconfig:"PIMASSET_DB_PORT" default:"5432"`
	User     string `envconfig:"PIMASSET_DB_USER"`
	Password string `envconfig:"PIMASSET_DB_PASSWORD"`
	Name     string `envconfig:"PIMASSET_DB_NAME"`
	SSLMode  string `envconfig:"PIMASSET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIMASSET_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"PIMASSET_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"PIMASSET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIMASSET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Dialect returns the normalized driver name.
func (db DBConfig) Dialect() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	switch driver {
	case "", "postgresql", "pg":
		return DriverPostgres
	case "mariadb":
		return DriverMySQL
	}
	return driver
}

// RedisConfig is optional; with neither URL nor address set the run lock is disabled.
type RedisConfig struct {
	URL          string        `envconfig:"PIMASSET_REDIS_URL"`
	Address      string        `envconfig:"PIMASSET_REDIS_ADDR"`
	Password     string        `envconfig:"PIMASSET_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIMASSET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIMASSET_REDIS_POOL_SIZE" default:"2"`
	MinIdleConns int           `envconfig:"PIMASSET_REDIS_MIN_IDLE_CONNS" default:"0"`
	DialTimeout  time.Duration `envconfig:"PIMASSET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIMASSET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIMASSET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type StorageConfig struct {
	UploadDir string `envconfig:"PIMASSET_UPLOAD_DIR" default:"data/upload/files"`
}

type LocaleConfig struct {
	MultilangActive   bool     `envconfig:"PIMASSET_MULTILANG_ACTIVE" default:"false"`
	InputLanguageList []string `envconfig:"PIMASSET_INPUT_LANGUAGES"`
}

// InputLocales returns the configured input locales, or nothing when
// multilingual mode is off.
func (l LocaleConfig) InputLocales() []string {
	if !l.MultilangActive {
		return nil
	}
	out := make([]string, 0, len(l.InputLanguageList))
	for _, locale := range l.InputLanguageList {
		locale = strings.TrimSpace(locale)
		if locale == "" {
			continue
		}
		out = append(out, locale)
	}
	return out
}

type MigrationConfig struct {
	BatchSize      int           `envconfig:"PIMASSET_BATCH_SIZE" default:"3000"`
	ReadinessDelay time.Duration `envconfig:"PIMASSET_READINESS_DELAY" default:"5s"`
	LockKey        string        `envconfig:"PIMASSET_LOCK_KEY" default:"pimasset:migration:pim-image"`
	LockTTL        time.Duration `envconfig:"PIMASSET_LOCK_TTL" default:"6h"`
	SystemUserID   string        `envconfig:"PIMASSET_SYSTEM_USER_ID" default:"system"`
	CollectionCode string        `envconfig:"PIMASSET_COLLECTION_CODE" default:"pimcollection"`
	CollectionName string        `envconfig:"PIMASSET_COLLECTION_NAME" default:"PimCollection"`
	PushgatewayURL string        `envconfig:"PIMASSET_PUSHGATEWAY_URL"`
	JobName        string        `envconfig:"PIMASSET_JOB_NAME" default:"pimimage_migration"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	if db.Dialect() == DriverMySQL {
		db.DSN = mysqlDSN(*db)
		return nil
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func mysqlDSN(db DBConfig) string {
	port := db.Port
	if port == 0 || port == 5432 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = db.User
	cfg.Passwd = db.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(db.Host, strconv.Itoa(port))
	cfg.DBName = db.Name
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
