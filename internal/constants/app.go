package constants

// Application Information
const (
	AppName    = "Chatbot Service"
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
	DefaultPort        = "8080"
	DefaultEnvironment = EnvDevelopment
)

// Cache Key Prefixes
const (
	CacheKeyPrefix = "chatbot:"
	CacheKeyMemory = CacheKeyPrefix + "memory:"
	CacheKeyUser   = CacheKeyPrefix + "user:"
)

// Subscription tiers and their persona quotas
const (
	TierFree    = "FREE"
	TierPro     = "PRO"
	TierProPlus = "PRO_PLUS"

	QuotaFree    = 1
	QuotaPro     = 3
	QuotaProPlus = 5
)

// Message sender values
const (
	SenderUser = "user"
	SenderBot  = "bot"
)
