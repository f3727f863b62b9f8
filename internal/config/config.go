package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Reference  ReferenceConfig  `yaml:"reference" mapstructure:"reference"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Estimate   EstimateConfig   `yaml:"estimate" mapstructure:"estimate"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Import     ImportConfig     `yaml:"import" mapstructure:"import"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ReferenceConfig configures the building reference data API and its local
// fallback store. UseMock forces local data without touching the network.
type ReferenceConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Key           string `yaml:"key" mapstructure:"key"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMins  int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	MockDir       string `yaml:"mock_dir" mapstructure:"mock_dir"`
	UseMock       bool   `yaml:"use_mock" mapstructure:"use_mock"`
	MaxRelevant   int    `yaml:"max_relevant" mapstructure:"max_relevant"`
	RatePerSecond int    `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig configures PDF text extraction.
type ExtractConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	OCRBaseURL    string `yaml:"ocr_base_url" mapstructure:"ocr_base_url"`
	OCRKey        string `yaml:"ocr_key" mapstructure:"ocr_key"`
	OCRModel      string `yaml:"ocr_model" mapstructure:"ocr_model"`
}

// EstimateConfig configures how gaps in analysis output are filled.
// Deterministic swaps the seeded RNG for fixed midpoints.
type EstimateConfig struct {
	RatesPath     string `yaml:"rates_path" mapstructure:"rates_path"`
	Deterministic bool   `yaml:"deterministic" mapstructure:"deterministic"`
	Seed          uint64 `yaml:"seed" mapstructure:"seed"`
}

// PricingConfig points at the unit price book used to cost generated
// bills of quantities. An empty path uses the built-in book.
type PricingConfig struct {
	BookPath string `yaml:"book_path" mapstructure:"book_path"`
}

// ImportConfig configures drawing file import over HTTP and FTP.
type ImportConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	UploadDir      string   `yaml:"upload_dir" mapstructure:"upload_dir"`
	ReportDir      string   `yaml:"report_dir" mapstructure:"report_dir"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures the background health checker run by the
// server. Rate thresholds are fractions between 0 and 1.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MockRateThreshold     float64 `yaml:"mock_rate_threshold" mapstructure:"mock_rate_threshold"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DRAWING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "drawings.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.upload_dir", "./uploads")
	v.SetDefault("server.report_dir", "./reports")
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("reference.base_url", "https://api.planvector.io/reference")
	v.SetDefault("reference.timeout_secs", 6)
	v.SetDefault("reference.cache_ttl_mins", 60)
	v.SetDefault("reference.mock_dir", "./mock_data")
	v.SetDefault("reference.max_relevant", 5)
	v.SetDefault("reference.rate_per_second", 10)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("extract.provider", "local")
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.ocr_model", "pixtral-large-latest")
	v.SetDefault("import.user_agent", "drawing-cli/1.0")
	v.SetDefault("import.timeout_secs", 30)
	v.SetDefault("import.max_retries", 3)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.mock_rate_threshold", 0.5)
	v.SetDefault("monitoring.fallback_rate_threshold", 0.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields a command mode depends on are set and in
// range. Problems are collected so one run reports every misconfiguration.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Reference.TimeoutSecs < 1 || c.Reference.TimeoutSecs > 120 {
		problems = append(problems, "reference.timeout_secs must be between 1 and 120")
	}
	if c.Reference.MaxRelevant < 1 || c.Reference.MaxRelevant > 50 {
		problems = append(problems, "reference.max_relevant must be between 1 and 50")
	}

	switch mode {
	case "analyze", "refdata", "report", "import":
		// Common checks cover these.
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB < 1 || c.Server.MaxUploadMB > 500 {
			problems = append(problems, "server.max_upload_mb must be between 1 and 500")
		}
		if c.Monitoring.Enabled {
			if c.Monitoring.CheckIntervalSecs < 10 {
				problems = append(problems, "monitoring.check_interval_secs must be at least 10")
			}
			if c.Monitoring.LookbackWindowHours < 1 {
				problems = append(problems, "monitoring.lookback_window_hours must be at least 1")
			}
		}
	case "export":
		if c.Salesforce.ClientID == "" {
			problems = append(problems, "salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			problems = append(problems, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			problems = append(problems, "salesforce.key_path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
