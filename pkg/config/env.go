package config

const EnvPrefix = "PIMASSET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "PIMASSET_APP_ENV"
	EnvLogLevel        = "PIMASSET_LOG_LEVEL"
	EnvDBDSN           = "PIMASSET_DB_DSN"
	EnvDBDriver        = "PIMASSET_DB_DRIVER"
	EnvDBHost          = "PIMASSET_DB_HOST"
	EnvDBPort          = "PIMASSET_DB_PORT"
	EnvDBUser          = "PIMASSET_DB_USER"
	EnvDBPassword      = "PIMASSET_DB_PASSWORD"
	EnvDBName          = "PIMASSET_DB_NAME"
	EnvRedisURL        = "PIMASSET_REDIS_URL"
	EnvUploadDir       = "PIMASSET_UPLOAD_DIR"
	EnvMultilangActive = "PIMASSET_MULTILANG_ACTIVE"
	EnvInputLanguages  = "PIMASSET_INPUT_LANGUAGES"
	EnvBatchSize       = "PIMASSET_BATCH_SIZE"
	EnvReadinessDelay  = "PIMASSET_READINESS_DELAY"
	EnvPushgatewayURL  = "PIMASSET_PUSHGATEWAY_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
