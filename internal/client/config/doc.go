// Package config loads runtime configuration for the invoice client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config (JSON, YAML or TOML),
//     together with INVOICE_* environment variables, both read through viper.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   REST API base URL
//	-p string   push channel origin
//	-d string   local storage file
//	-t int      request timeout (seconds)
//	-l string   log level
//
// # File schema
//
//	{
//	  "api_base_url": "http://localhost:5000/api",
//	  "push_url": "http://localhost:5000",
//	  "request_timeout": "30s",
//	  "log_level": "debug"
//	}
//
// The same keys are read from the environment in upper case with the
// INVOICE_ prefix, e.g. INVOICE_REQUEST_TIMEOUT=10s.
package config
