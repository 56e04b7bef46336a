package config

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	Email         EmailConfig         `mapstructure:"email"`
	Password      PasswordConfig      `mapstructure:"password"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Encryption    EncryptionConfig    `mapstructure:"encryption"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Accounting    AccountingConfig    `mapstructure:"accounting"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Nats          NatsConfig          `mapstructure:"nats"`
}

type NatsConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	Host     string             `mapstructure:"host"`
	Port     int                `mapstructure:"port"`
	User     string             `mapstructure:"user"`
	Password string             `mapstructure:"password"`
	DBName   string             `mapstructure:"dbname"`
	SSLMode  string             `mapstructure:"sslmode"`
	Pool     DatabasePoolConfig `mapstructure:"pool"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	DB           int    `mapstructure:"db"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	TimeoutSeconds int        `mapstructure:"timeout_seconds"`
	Environment    string     `mapstructure:"environment"`
	Domain         string     `mapstructure:"domain"`
	CORS           CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type AuthConfig struct {
	Paseto            PasetoConfig `mapstructure:"paseto"`
	SessionTTLMinutes int          `mapstructure:"session_ttl_minutes"`
	// After MaxFailedLogins consecutive failures the account is locked
	// for LockoutMinutes.
	MaxFailedLogins int `mapstructure:"max_failed_logins"`
	LockoutMinutes  int `mapstructure:"lockout_minutes"`
}

type PasetoConfig struct {
	Mode             string `mapstructure:"mode"`
	LocalKeyHex      string `mapstructure:"local_key_hex"`
	SecretKeyHex     string `mapstructure:"secret_key_hex"`
	PublicKeyHex     string `mapstructure:"public_key_hex"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
}

type AuthorizationConfig struct {
	CasbinModelPath  string `mapstructure:"casbin_model_path"`
	CasbinPolicyPath string `mapstructure:"casbin_policy_path"`
}

type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	From    string `mapstructure:"from"`
	// BackOffice receives download-request copies of archived files.
	BackOffice string     `mapstructure:"back_office"`
	SMTP       SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UseTLS         bool   `mapstructure:"use_tls"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type PasswordConfig struct {
	MemoryKiB   uint32 `mapstructure:"memory_kib"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type StorageConfig struct {
	// Backend selects the object store implementation: "s3" or "local".
	Backend string `mapstructure:"backend"`
	// LocalRoot is the mirror directory when backend=local.
	LocalRoot string   `mapstructure:"local_root"`
	S3        S3Config `mapstructure:"s3"`
	// LegacyLayouts enables recognition of historical draft key prefixes
	// (draft/, drafts_backup/drafts/) during confirmation.
	LegacyLayouts bool `mapstructure:"legacy_layouts"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PresignTTLSec   int    `mapstructure:"presign_ttl_sec"`
}

type EncryptionConfig struct {
	// KeyHex is the mandatory 64-char hex encoding of the 32-byte AES-256
	// key used for file encryption. Startup fails without it.
	KeyHex string `mapstructure:"key_hex"`
}

type PipelineConfig struct {
	TempDir string `mapstructure:"temp_dir"`
	// Auto-confirm sweep settings.
	AutoConfirmIntervalMinutes int `mapstructure:"auto_confirm_interval_minutes"`
	AutoConfirmAfterHours      int `mapstructure:"auto_confirm_after_hours"`
	MaxConfirmAttempts         int `mapstructure:"max_confirm_attempts"`
	// Restore polling.
	RestorePollSeconds    int `mapstructure:"restore_poll_seconds"`
	RestorePollIterations int `mapstructure:"restore_poll_iterations"`
	// DownloadRequestLimit caps per-file email requests for tenant users.
	DownloadRequestLimit int `mapstructure:"download_request_limit"`
}

type AccountingConfig struct {
	FiscalYear string `mapstructure:"fiscal_year"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
}

type FileLogConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Dir holds one rotated log file per audit category
	// (auth.log, activity.log, system.log).
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}
