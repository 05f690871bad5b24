package config

import (
	"strings"

	"github.com/dmitrijs2005/invoiceclient/internal/flagx"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the client reads,
// e.g. INVOICE_API_BASE_URL.
const EnvPrefix = "INVOICE"

// parseFileAndEnv overlays cfg with values from the optional config file
// (-c or -config) and from INVOICE_* environment variables.
//
// Current values of cfg act as viper defaults, so keys missing from both
// sources keep them. Durations accept strings like "15s".
// Panics on read or decode errors.
func parseFileAndEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_base_url", cfg.APIBaseURL)
	v.SetDefault("push_url", cfg.PushURL)
	v.SetDefault("storage_path", cfg.StoragePath)
	v.SetDefault("download_dir", cfg.DownloadDir)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("otlp_endpoint", cfg.OTLPEndpoint)
	v.SetDefault("default_language", cfg.DefaultLanguage)

	if path := flagx.ConfigFileFlag(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic(err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		panic(err)
	}
}
