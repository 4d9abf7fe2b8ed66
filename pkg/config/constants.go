package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for unannotated fields.
const EnvPrefix = "CARENEST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CARENEST_DB_DSN"
	EnvDBHost = "CARENEST_DB_HOST"
	EnvDBUser = "CARENEST_DB_USER"
	EnvDBName = "CARENEST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
