package config

const (
	EnvPrefix = "FOLIOSCOPE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "FOLIOSCOPE_APP_ENV"
	EnvDBDSN  = "FOLIOSCOPE_DB_DSN"
	EnvDBHost = "FOLIOSCOPE_DB_HOST"
	EnvDBUser = "FOLIOSCOPE_DB_USER"
	EnvDBName = "FOLIOSCOPE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
