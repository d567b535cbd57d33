package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Storage     StorageConfig     `mapstructure:"storage"     validate:"required"`
	Recognition RecognitionConfig `mapstructure:"recognition" validate:"required"`
	Task        TaskConfig        `mapstructure:"task"        validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// StorageConfig contains the object storage (S3-compatible) settings.
// UploadPrefix is the key prefix under which all meal input files live;
// completion notifications are only accepted for keys under this prefix.
type StorageConfig struct {
	Endpoint          string `mapstructure:"endpoint"            validate:"required"`
	AccessKey         string `mapstructure:"access_key"          validate:"required"`
	SecretKey         string `mapstructure:"secret_key"          validate:"required"`
	Bucket            string `mapstructure:"bucket"              validate:"required"`
	UseSSL            bool   `mapstructure:"use_ssl"`
	UploadPrefix      string `mapstructure:"upload_prefix"       validate:"required"`
	PresignExpiryMins int    `mapstructure:"presign_expiry_mins" validate:"required,gt=0"`
}

// RecognitionConfig contains all recognition backend related settings.
type RecognitionConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"     validate:"required,gt=0"`
}

// TaskConfig contains the background task runner settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}

// AuthConfig contains the settings for verifying tokens issued by the
// external authorization service. This service only verifies; it never
// issues or refreshes tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}
