package config

// Config holds intake configuration.
// Stored at: {data_dir}/config.yaml
type Config struct {
	Server   ServerCfg   `mapstructure:"server" yaml:"server"`
	Database DatabaseCfg `mapstructure:"database" yaml:"database"`
	Auth     AuthCfg     `mapstructure:"auth" yaml:"auth"`
	Analysis AnalysisCfg `mapstructure:"analysis" yaml:"analysis"`
	Extract  ExtractCfg  `mapstructure:"extract" yaml:"extract"`
	Storage  StorageCfg  `mapstructure:"storage" yaml:"storage"`
	Events   EventsCfg   `mapstructure:"events" yaml:"events"`
	Workers  WorkersCfg  `mapstructure:"workers" yaml:"workers"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DatabaseCfg configures the job record store.
type DatabaseCfg struct {
	Path string `mapstructure:"path" yaml:"path"` // SQLite database file
}

// AuthCfg configures request authentication.
type AuthCfg struct {
	// Mode is "jwt" or "static" (single fixed owner, local development only).
	Mode string `mapstructure:"mode" yaml:"mode"`
	// JWTSecret signs and verifies HS256 tokens (supports ${ENV_VAR} syntax).
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	// StaticOwner is the owner id used in static mode.
	StaticOwner string `mapstructure:"static_owner" yaml:"static_owner"`
}

// AnalysisCfg configures the external analysis backend.
type AnalysisCfg struct {
	// Mode is "http" or "mock".
	Mode    string `mapstructure:"mode" yaml:"mode"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
}

// ExtractCfg configures the structured extraction backend.
type ExtractCfg struct {
	// Mode is "openai" or "mock".
	Mode    string `mapstructure:"mode" yaml:"mode"`
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// StorageCfg configures the artifact blob store.
type StorageCfg struct {
	// Mode is "fs" or "s3".
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Root is the filesystem root in fs mode.
	Root string `mapstructure:"root" yaml:"root"`
	// S3 settings used in s3 mode.
	Bucket   string `mapstructure:"bucket" yaml:"bucket"`
	Region   string `mapstructure:"region" yaml:"region"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// EventsCfg configures completion event ingress.
type EventsCfg struct {
	// Mode is "sqs", "webhook", or "both".
	Mode string `mapstructure:"mode" yaml:"mode"`
	// QueueURL and Region configure the SQS consumer.
	QueueURL string `mapstructure:"queue_url" yaml:"queue_url"`
	Region   string `mapstructure:"region" yaml:"region"`
	// WebhookToken authenticates pushed events (supports ${ENV_VAR} syntax).
	WebhookToken string `mapstructure:"webhook_token" yaml:"webhook_token"`
}

// WorkersCfg configures the engine worker pool.
type WorkersCfg struct {
	Count     int `mapstructure:"count" yaml:"count"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8280,
		},
		Database: DatabaseCfg{
			Path: "intake.db",
		},
		Auth: AuthCfg{
			Mode:        "jwt",
			JWTSecret:   "${INTAKE_JWT_SECRET}",
			StaticOwner: "local-dev",
		},
		Analysis: AnalysisCfg{
			Mode:   "http",
			APIKey: "${ANALYSIS_API_KEY}",
		},
		Extract: ExtractCfg{
			Mode:   "openai",
			Model:  "gpt-4o-mini",
			APIKey: "${OPENAI_API_KEY}",
		},
		Storage: StorageCfg{
			Mode: "fs",
			Root: "data",
		},
		Events: EventsCfg{
			Mode:         "webhook",
			WebhookToken: "${INTAKE_WEBHOOK_TOKEN}",
		},
		Workers: WorkersCfg{
			Count:     4,
			QueueSize: 256,
		},
	}
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *Config) ListenAddr() string {
	host := c.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8280
	}
	return hostPort(host, port)
}
