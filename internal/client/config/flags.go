package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   REST API base URL
//	-p string   push channel origin
//	-d string   local storage file
//	-t int      request timeout in seconds
//	-l string   log level
//
// Only these flags are read from os.Args (see flagx.FilterArgs).
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p", "-d", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "REST API base URL")
	fs.StringVar(&cfg.PushURL, "p", cfg.PushURL, "push channel origin")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "local storage file")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
