package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "scenthq"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SCENTHQ_DB_DSN"
	EnvDBHost = "SCENTHQ_DB_HOST"
	EnvDBUser = "SCENTHQ_DB_USER"
	EnvDBName = "SCENTHQ_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
