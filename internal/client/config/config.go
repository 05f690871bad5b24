package config

import "time"

// Config holds runtime settings for the invoice client.
//
// Fields:
//   - APIBaseURL: root of the REST API, e.g. http://localhost:5000/api.
//   - PushURL: origin of the Socket.IO push endpoint.
//   - StoragePath: SQLite file backing durable client storage.
//   - DownloadDir: directory downloaded files are written to.
//   - RequestTimeout: per-request timeout for API calls.
//   - LogLevel: debug, info, warn or error.
//   - OTLPEndpoint: collector address; tracing is disabled when empty.
//   - DefaultLanguage: locale used before detection or a stored preference.
type Config struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	PushURL         string        `mapstructure:"push_url"`
	StoragePath     string        `mapstructure:"storage_path"`
	DownloadDir     string        `mapstructure:"download_dir"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	DefaultLanguage string        `mapstructure:"default_language"`
}

// LoadDefaults populates c with defaults suitable for a local server.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000/api"
	c.PushURL = "http://localhost:5000"
	c.StoragePath = "invoice-client.db"
	c.DownloadDir = "downloads"
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.OTLPEndpoint = ""
	c.DefaultLanguage = "en"
}

// LoadConfig constructs a Config, applies defaults, then overlays the config
// file and INVOICE_* environment variables, then command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFileAndEnv(cfg)
	parseFlags(cfg)
	return cfg
}
