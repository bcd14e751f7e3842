package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath   string
	URL          string
	Prefix       string
	LogLevel     string
	LogFormat    string
	MetricsPort  int
	QueryTimeout time.Duration
	ShowVersion  bool

	// Command and its positional arguments
	Command string
	Args    []string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("KEYSTREAM_CONFIG", ""),
		"Path to a JSON or YAML session configuration file (env: KEYSTREAM_CONFIG)")

	flag.StringVar(&cfg.URL, "url",
		getEnv("KEYSTREAM_URL", ""),
		"Engine endpoint, e.g. nats://127.0.0.1:4222 (env: KEYSTREAM_URL)")

	flag.StringVar(&cfg.Prefix, "prefix",
		getEnv("KEYSTREAM_PREFIX", "ks"),
		"Subject namespace prefix (env: KEYSTREAM_PREFIX)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("KEYSTREAM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: KEYSTREAM_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("KEYSTREAM_LOG_FORMAT", "text"),
		"Log format: json, text (env: KEYSTREAM_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port", 0,
		"Expose Prometheus metrics on this port (0 disables)")

	flag.DurationVar(&cfg.QueryTimeout, "query-timeout", time.Second,
		"How long get collects replies before returning")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 {
		cfg.Command = args[0]
		cfg.Args = args[1:]
	}
	return cfg
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [args]

Commands:
  pub <key> <value>   publish a value on a key expression
  delete <key>        publish a deletion on a key expression
  sub <keyexpr>       subscribe and print samples until interrupted
  get <selector>      query and print the consolidated replies
  info                print session identifiers

Flags:
`, appName)
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
