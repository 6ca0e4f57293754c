package constants

// Application Information
const (
	AppName    = "NimbusWolf"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "3001"
	DefaultEnvironment = EnvDevelopment
)

// Cache Key Prefixes
const (
	CacheKeyPrefix         = "nimbuswolf:"
	CacheKeyRevokedRefresh = CacheKeyPrefix + "revoked_refresh:"
	CacheKeyInstitution    = CacheKeyPrefix + "institution:"
)

// Provider defaults
const (
	InstitutionPlaceholder = "Unknown"
	DefaultAccountType     = "depository"
	DefaultAccountName     = "Account"
	ProviderDateLayout     = "2006-01-02"
)

// Module names used when tagging contexts for the logger
const (
	ModuleHandler    = "handler"
	ModuleService    = "service"
	ModuleRepository = "repository"
	ModuleMiddleware = "middleware"
)
