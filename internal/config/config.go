package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "COOLING"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Setup     SetupConfig     `yaml:"setup" envconfig:"SETUP"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration for the dashboard
type ServerConfig struct {
	Host             string        `yaml:"host" envconfig:"HOST" default:"127.0.0.1"`
	Port             int           `yaml:"port" envconfig:"PORT" default:"8050"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout   time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"45s"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"30m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://127.0.0.1:8050,http://localhost:8050"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system locations. Relative paths are resolved
// against WorkDir, which defaults to the current working directory.
type PathsConfig struct {
	WorkDir   string `yaml:"work_dir" envconfig:"WORK_DIR"`
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" default:"test_app_data"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"processed_data"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// SetupConfig drives the install and preprocess steps of cmd/setup
type SetupConfig struct {
	Variant           string        `yaml:"variant" envconfig:"VARIANT" default:"base"`
	Manifest          string        `yaml:"manifest" envconfig:"MANIFEST"`
	PackageManager    string        `yaml:"package_manager" envconfig:"PACKAGE_MANAGER" default:"pip"`
	InstallArgs       []string      `yaml:"install_args" envconfig:"INSTALL_ARGS" default:"install"`
	PreprocessCommand []string      `yaml:"preprocess_command" envconfig:"PREPROCESS_COMMAND"`
	StepTimeout       time.Duration `yaml:"step_timeout" envconfig:"STEP_TIMEOUT" default:"0s"`
	SkipInstall       bool          `yaml:"skip_install" envconfig:"SKIP_INSTALL" default:"false"`
}

// AnalysisConfig holds the tunables of the cooling analysis
type AnalysisConfig struct {
	MinZoneTemp      float64 `yaml:"min_zone_temp" envconfig:"MIN_ZONE_TEMP" default:"30"`
	MaxZoneTemp      float64 `yaml:"max_zone_temp" envconfig:"MAX_ZONE_TEMP" default:"200"`
	TopZones         int     `yaml:"top_zones" envconfig:"TOP_ZONES" default:"10"`
	Workers          int     `yaml:"workers" envconfig:"WORKERS" default:"0"`
	DefaultFrequency string  `yaml:"default_frequency" envconfig:"DEFAULT_FREQUENCY" default:"W"`

	// MaxSpanHours bounds the hourly grid of one building; 0 disables it.
	MaxSpanHours int `yaml:"max_span_hours" envconfig:"MAX_SPAN_HOURS" default:"87600"`
}

// StorageConfig configures the optional S3-compatible mirror of the processed artifact
type StorageConfig struct {
	Enabled         bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	Bucket          string `yaml:"bucket" envconfig:"BUCKET" default:"building-waste"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX" default:"processed_data"`
	UseSSL          bool   `yaml:"use_ssl" envconfig:"USE_SSL" default:"false"`
}

// CacheConfig configures the dashboard response cache
type CacheConfig struct {
	Backend       string        `yaml:"backend" envconfig:"BACKEND" default:"memory"`
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB" default:"0"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" default:"15m"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"building-waste"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"true"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
}

// Load loads configuration from .env files, environment variables and the
// first config file found in the usual locations.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An explicit path that does
// not exist is an error; an empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := path
	if configFile == "" {
		configFile = getConfigFilePath()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads .env.local then .env. godotenv never overrides variables
// that are already set, so the real environment wins over both files.
func loadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays non-zero file values onto the env config, except
// where the matching environment variable is explicitly set.
func mergeConfigs(fileConfig, envConfig Config) Config {
	f, e := fileConfig, &envConfig

	overlay(&e.Server.Host, f.Server.Host, "SERVER_HOST")
	overlay(&e.Server.Port, f.Server.Port, "SERVER_PORT")
	overlay(&e.Server.ReadTimeout, f.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	overlay(&e.Server.WriteTimeout, f.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	overlay(&e.Server.IdleTimeout, f.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	overlay(&e.Server.RequestTimeout, f.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")
	overlay(&e.Server.MaxUploadBytes, f.Server.MaxUploadBytes, "SERVER_MAX_UPLOAD_BYTES")
	overlay(&e.Server.ShutdownTimeout, f.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	overlay(&e.Server.OperationTimeout, f.Server.OperationTimeout, "SERVER_OPERATION_TIMEOUT")

	overlaySlice(&e.Security.AllowedOrigins, f.Security.AllowedOrigins, "SECURITY_ALLOWED_ORIGINS")
	overlay(&e.Security.RateLimit.RPS, f.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	overlay(&e.Security.RateLimit.Burst, f.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	overlay(&e.Logging.Level, f.Logging.Level, "LOGGING_LEVEL")
	overlay(&e.Logging.Output, f.Logging.Output, "LOGGING_OUTPUT")
	overlay(&e.Logging.FilePath, f.Logging.FilePath, "LOGGING_FILE_PATH")

	overlay(&e.Paths.WorkDir, f.Paths.WorkDir, "PATHS_WORK_DIR")
	overlay(&e.Paths.InputDir, f.Paths.InputDir, "PATHS_INPUT_DIR")
	overlay(&e.Paths.OutputDir, f.Paths.OutputDir, "PATHS_OUTPUT_DIR")
	overlay(&e.Paths.LogsDir, f.Paths.LogsDir, "PATHS_LOGS_DIR")

	overlay(&e.Setup.Variant, f.Setup.Variant, "SETUP_VARIANT")
	overlay(&e.Setup.Manifest, f.Setup.Manifest, "SETUP_MANIFEST")
	overlay(&e.Setup.PackageManager, f.Setup.PackageManager, "SETUP_PACKAGE_MANAGER")
	overlaySlice(&e.Setup.InstallArgs, f.Setup.InstallArgs, "SETUP_INSTALL_ARGS")
	overlaySlice(&e.Setup.PreprocessCommand, f.Setup.PreprocessCommand, "SETUP_PREPROCESS_COMMAND")
	overlay(&e.Setup.StepTimeout, f.Setup.StepTimeout, "SETUP_STEP_TIMEOUT")
	overlay(&e.Setup.SkipInstall, f.Setup.SkipInstall, "SETUP_SKIP_INSTALL")

	overlay(&e.Analysis.MinZoneTemp, f.Analysis.MinZoneTemp, "ANALYSIS_MIN_ZONE_TEMP")
	overlay(&e.Analysis.MaxZoneTemp, f.Analysis.MaxZoneTemp, "ANALYSIS_MAX_ZONE_TEMP")
	overlay(&e.Analysis.TopZones, f.Analysis.TopZones, "ANALYSIS_TOP_ZONES")
	overlay(&e.Analysis.Workers, f.Analysis.Workers, "ANALYSIS_WORKERS")
	overlay(&e.Analysis.DefaultFrequency, f.Analysis.DefaultFrequency, "ANALYSIS_DEFAULT_FREQUENCY")
	overlay(&e.Analysis.MaxSpanHours, f.Analysis.MaxSpanHours, "ANALYSIS_MAX_SPAN_HOURS")

	overlay(&e.Storage.Enabled, f.Storage.Enabled, "STORAGE_ENABLED")
	overlay(&e.Storage.Endpoint, f.Storage.Endpoint, "STORAGE_ENDPOINT")
	overlay(&e.Storage.AccessKeyID, f.Storage.AccessKeyID, "STORAGE_ACCESS_KEY_ID")
	overlay(&e.Storage.SecretAccessKey, f.Storage.SecretAccessKey, "STORAGE_SECRET_ACCESS_KEY")
	overlay(&e.Storage.Bucket, f.Storage.Bucket, "STORAGE_BUCKET")
	overlay(&e.Storage.Prefix, f.Storage.Prefix, "STORAGE_PREFIX")
	overlay(&e.Storage.UseSSL, f.Storage.UseSSL, "STORAGE_USE_SSL")

	overlay(&e.Cache.Backend, f.Cache.Backend, "CACHE_BACKEND")
	overlay(&e.Cache.RedisAddr, f.Cache.RedisAddr, "CACHE_REDIS_ADDR")
	overlay(&e.Cache.RedisPassword, f.Cache.RedisPassword, "CACHE_REDIS_PASSWORD")
	overlay(&e.Cache.RedisDB, f.Cache.RedisDB, "CACHE_REDIS_DB")
	overlay(&e.Cache.TTL, f.Cache.TTL, "CACHE_TTL")

	overlay(&e.Telemetry.ServiceName, f.Telemetry.ServiceName, "TELEMETRY_SERVICE_NAME")
	overlay(&e.Telemetry.Environment, f.Telemetry.Environment, "TELEMETRY_ENVIRONMENT")
	overlay(&e.Telemetry.TraceExporter, f.Telemetry.TraceExporter, "TELEMETRY_TRACE_EXPORTER")
	overlay(&e.Telemetry.MetricExporter, f.Telemetry.MetricExporter, "TELEMETRY_METRIC_EXPORTER")
	overlay(&e.Telemetry.SampleRatio, f.Telemetry.SampleRatio, "TELEMETRY_SAMPLE_RATIO")

	return envConfig
}

func overlay[T comparable](dst *T, fileValue T, envKey string) {
	var zero T
	if fileValue == zero || envSet(envKey) {
		return
	}
	*dst = fileValue
}

func overlaySlice(dst *[]string, fileValue []string, envKey string) {
	if len(fileValue) == 0 || envSet(envKey) {
		return
	}
	*dst = fileValue
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q (want console, file or both)", c.Logging.Output)
	}

	if c.Setup.PackageManager == "" {
		return fmt.Errorf("setup package manager must be set")
	}

	if c.Setup.StepTimeout < 0 {
		return fmt.Errorf("setup step timeout must not be negative")
	}

	if c.Analysis.MinZoneTemp >= c.Analysis.MaxZoneTemp {
		return fmt.Errorf("analysis zone temperature range is empty: [%g, %g]",
			c.Analysis.MinZoneTemp, c.Analysis.MaxZoneTemp)
	}

	if c.Analysis.TopZones <= 0 {
		return fmt.Errorf("analysis top zones must be positive")
	}

	if c.Analysis.MaxSpanHours < 0 {
		return fmt.Errorf("analysis max span hours must not be negative")
	}

	switch c.Analysis.DefaultFrequency {
	case "H", "D", "W", "M":
	default:
		return fmt.Errorf("invalid default frequency %q", c.Analysis.DefaultFrequency)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("invalid cache backend %q (want memory, redis or none)", c.Cache.Backend)
	}

	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("storage requires an endpoint and a bucket when enabled")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             DefaultHost,
			Port:             DefaultPort,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      60 * time.Second,
			RequestTimeout:   45 * time.Second,
			MaxHeaderBytes:   1 << 20, // 1MB
			MaxUploadBytes:   100 << 20,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: 30 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://127.0.0.1:8050", "http://localhost:8050"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			InputDir:  DefaultInputDir,
			OutputDir: DefaultOutputDir,
			LogsDir:   "logs",
		},
		Setup: SetupConfig{
			Variant:        "base",
			PackageManager: "pip",
			InstallArgs:    []string{"install"},
		},
		Analysis: AnalysisConfig{
			MinZoneTemp:      30,
			MaxZoneTemp:      200,
			TopZones:         10,
			DefaultFrequency: "W",
			MaxSpanHours:     87600,
		},
		Storage: StorageConfig{
			Endpoint: "localhost:9000",
			Bucket:   "building-waste",
			Prefix:   "processed_data",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       15 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "building-waste",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			EnableTracing:  true,
			EnableMetrics:  true,
			SampleRatio:    1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}
