package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/labelprint/backend/internal/domain/label"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	Writer    WriterConfig
	Renderer  RendererConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Swagger   SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
	// MaxRecords caps the records accepted by one request
	MaxRecords int
	// CORSOrigins lists allowed browser origins; empty rejects cross-origin calls
	CORSOrigins []string
	// RateLimit is requests per minute per client, 0 disables limiting
	RateLimit int
}

// AuthConfig holds bearer token settings for the HTTP API.
// Authentication is off unless Enabled is set.
type AuthConfig struct {
	Enabled         bool
	Secret          string
	Issuer          string
	TokenExpiration time.Duration
}

// WriterConfig holds the label writer defaults
type WriterConfig struct {
	TemplatePath     string
	TemplateEncoding string
	ItemsPerPage     int
	Stylesheets      []string
	BaseURL          string
	Columns          int    // fixed grid columns per page, 0 lets items flow
	PageMargin       string // CSS @page margin of the print skeleton
	Title            string
}

// RendererConfig holds the HTML to PDF engine settings
type RendererConfig struct {
	Engine      string // chromedp, wkhtmltopdf
	Timeout     time.Duration
	PaperSize   string
	Orientation string
	Margins     label.Margins
	// chromedp
	RemoteURL string
	NoSandbox bool
	// wkhtmltopdf
	BinaryPath string
	DPI        int
	TempDir    string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	KeyPrefix         string
}

// DatabaseConfig holds the connection used by the SQL record source
type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Path     string // sqlite database file
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // OTLP gRPC endpoint, host:port
	Insecure          bool
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool // export zap logs through the OTLP log bridge

	// Pyroscope continuous profiling, independent of the OTLP collector
	ProfilingEnabled       bool
	ProfilingServerAddress string   // e.g. http://pyroscope:4040
	ProfilingBasicAuthUser string   // optional, for hosted Pyroscope
	ProfilingBasicAuthPass string   // optional, for hosted Pyroscope
	ProfilingTypes         []string // cpu, alloc_objects, alloc_space, inuse_objects, inuse_space, goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfilingSpanProfiles  bool     // link CPU profiles to trace spans; needs telemetry.enabled
}

// SwaggerConfig holds the API documentation endpoint settings
type SwaggerConfig struct {
	Enabled     bool     // serve /swagger/*any
	RequireAuth bool     // require a bearer token to read the docs
	AllowedIPs  []string // IPs or CIDR ranges allowed to read the docs
}

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Engine names
const (
	EngineChromedp    = "chromedp"
	EngineWkhtmltopdf = "wkhtmltopdf"
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LABEL_ prefix (e.g., LABEL_WRITER_ITEMS_PER_PAGE)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return load(v)
}

// LoadFile loads configuration from an explicit TOML file plus environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("LABEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			MaxBodySize:  v.GetInt64("http.max_body_size"),
			MaxRecords:   v.GetInt("http.max_records"),
			CORSOrigins:  v.GetStringSlice("http.cors_origins"),
			RateLimit:    v.GetInt("http.rate_limit"),
		},
		Auth: AuthConfig{
			Enabled:         v.GetBool("auth.enabled"),
			Secret:          v.GetString("auth.secret"),
			Issuer:          v.GetString("auth.issuer"),
			TokenExpiration: v.GetDuration("auth.token_expiration"),
		},
		Writer: WriterConfig{
			TemplatePath:     v.GetString("writer.template_path"),
			TemplateEncoding: v.GetString("writer.template_encoding"),
			ItemsPerPage:     v.GetInt("writer.items_per_page"),
			Stylesheets:      v.GetStringSlice("writer.stylesheets"),
			BaseURL:          v.GetString("writer.base_url"),
			Columns:          v.GetInt("writer.columns"),
			PageMargin:       v.GetString("writer.page_margin"),
			Title:            v.GetString("writer.title"),
		},
		Renderer: RendererConfig{
			Engine:      v.GetString("renderer.engine"),
			Timeout:     v.GetDuration("renderer.timeout"),
			PaperSize:   v.GetString("renderer.paper_size"),
			Orientation: v.GetString("renderer.orientation"),
			Margins: label.Margins{
				Top:    v.GetInt("renderer.margins.top"),
				Right:  v.GetInt("renderer.margins.right"),
				Bottom: v.GetInt("renderer.margins.bottom"),
				Left:   v.GetInt("renderer.margins.left"),
			},
			RemoteURL:  v.GetString("renderer.remote_url"),
			NoSandbox:  v.GetBool("renderer.no_sandbox"),
			BinaryPath: v.GetString("renderer.binary_path"),
			DPI:        v.GetInt("renderer.dpi"),
			TempDir:    v.GetString("renderer.temp_dir"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			KeyPrefix:         v.GetString("storage.key_prefix"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("database.driver"),
			Path:     v.GetString("database.path"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),

			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
			ProfilingBasicAuthUser: v.GetString("telemetry.profiling_basic_auth_user"),
			ProfilingBasicAuthPass: v.GetString("telemetry.profiling_basic_auth_password"),
			ProfilingTypes:         v.GetStringSlice("telemetry.profiling_types"),
			ProfilingSpanProfiles:  v.GetBool("telemetry.profiling_span_profiles"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "labelprint"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// PDF rendering of large batches is slow
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.MaxRecords == 0 {
		cfg.HTTP.MaxRecords = 5000
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = cfg.App.Name
	}
	if cfg.Auth.TokenExpiration == 0 {
		cfg.Auth.TokenExpiration = 24 * time.Hour
	}
	if cfg.Writer.TemplateEncoding == "" {
		cfg.Writer.TemplateEncoding = "utf-8"
	}
	if cfg.Writer.ItemsPerPage == 0 {
		cfg.Writer.ItemsPerPage = 1
	}
	if cfg.Writer.PageMargin == "" {
		cfg.Writer.PageMargin = "0"
	}
	if cfg.Writer.Title == "" {
		cfg.Writer.Title = "Labels"
	}
	if cfg.Renderer.Engine == "" {
		cfg.Renderer.Engine = EngineChromedp
	}
	if cfg.Renderer.Timeout == 0 {
		cfg.Renderer.Timeout = 30 * time.Second
	}
	if cfg.Renderer.PaperSize == "" {
		cfg.Renderer.PaperSize = string(label.PaperSizeCSSDriven)
	}
	if cfg.Renderer.Orientation == "" {
		cfg.Renderer.Orientation = string(label.OrientationPortrait)
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "labels/"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if len(cfg.Telemetry.ProfilingTypes) == 0 {
		cfg.Telemetry.ProfilingTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c.Writer.ItemsPerPage <= 0 {
		return fmt.Errorf("writer.items_per_page must be positive, got %d", c.Writer.ItemsPerPage)
	}
	if c.Writer.Columns < 0 {
		return fmt.Errorf("writer.columns cannot be negative")
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}

	if c.Auth.Enabled && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 characters when auth is enabled")
	}

	switch c.Renderer.Engine {
	case EngineChromedp, EngineWkhtmltopdf:
	default:
		return fmt.Errorf("renderer.engine must be %q or %q, got %q", EngineChromedp, EngineWkhtmltopdf, c.Renderer.Engine)
	}
	if !label.PaperSize(c.Renderer.PaperSize).IsValid() {
		return fmt.Errorf("renderer.paper_size %q is not supported", c.Renderer.PaperSize)
	}
	if !label.Orientation(c.Renderer.Orientation).IsValid() {
		return fmt.Errorf("renderer.orientation must be PORTRAIT or LANDSCAPE, got %q", c.Renderer.Orientation)
	}
	m := c.Renderer.Margins
	if _, err := label.NewMargins(m.Top, m.Right, m.Bottom, m.Left); err != nil {
		return fmt.Errorf("renderer.margins: %w", err)
	}
	if c.Renderer.Timeout < 0 {
		return fmt.Errorf("renderer.timeout cannot be negative")
	}

	if c.Storage.Enabled {
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage is enabled")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage.access_key and storage.secret_key are required when storage is enabled")
		}
	}

	if c.App.Env == "production" && c.Storage.Enabled && !c.Storage.UseSSL &&
		!strings.HasPrefix(c.Storage.Endpoint, "https://") {
		return fmt.Errorf("storage must use TLS in production")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" && c.Swagger.Enabled &&
		!c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
	}
	if c.Swagger.RequireAuth && !c.Auth.Enabled {
		return fmt.Errorf("swagger.require_auth needs auth.enabled")
	}

	if c.Telemetry.ProfilingEnabled {
		if c.Telemetry.ProfilingServerAddress == "" {
			return fmt.Errorf("telemetry.profiling_server_address is required when profiling is enabled")
		}
		if u, err := url.Parse(c.Telemetry.ProfilingServerAddress); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("telemetry.profiling_server_address must be an absolute URL, got %q", c.Telemetry.ProfilingServerAddress)
		}
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
