package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SCHOOLOPS_APP_ENV"
	EnvPort     = "SCHOOLOPS_APP_PORT"
	EnvRedisURL = "SCHOOLOPS_REDIS_URL"

	EnvDBDSN  = "SCHOOLOPS_DB_DSN"
	EnvDBHost = "SCHOOLOPS_DB_HOST"
	EnvDBUser = "SCHOOLOPS_DB_USER"
	EnvDBName = "SCHOOLOPS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
