package server

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/phuslu/log"
)

// Config is the immutable configuration threaded into the server at
// construction. Precedence, lowest to highest: TOML config file,
// OPENAPI_MCP_* environment variables, command-line flags.
type Config struct {
	// Name and Version override the served name and version derived
	// from the description's info block.
	Name    string
	Version string
	// BaseURL overrides every server URL the description declares.
	BaseURL string
	// APIKey is the caller-supplied credential.
	APIKey string
	// Headers are extra default headers, from repeated --header flags.
	Headers http.Header

	// HTTPAddr enables the streamable HTTP transport when non-empty;
	// otherwise the server speaks stdio.
	HTTPAddr string
	// Summary prints the tool summary instead of serving.
	Summary bool
	// Interactive allows prompting for a missing credential.
	Interactive bool
	// LogLevel is a phuslu/log level name (debug, info, warn, error).
	LogLevel string

	// DatabaseURL enables database mode, serving every stored active
	// spec instead of a single file.
	DatabaseURL string
	// PollInterval is the database polling cadence in seconds; zero
	// disables polling.
	PollInterval int

	// Sources are the positional arguments: description files or URLs.
	Sources []string
}

// fileConfig is the TOML shape of the optional config file.
type fileConfig struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	BaseURL      string            `toml:"base_url"`
	APIKey       string            `toml:"api_key"`
	Headers      map[string]string `toml:"headers"`
	HTTPAddr     string            `toml:"http_addr"`
	LogLevel     string            `toml:"log_level"`
	PollInterval int               `toml:"poll_interval"`
}

// headerFlag collects repeated --header name:value pairs.
type headerFlag struct {
	header http.Header
}

func (h *headerFlag) String() string { return "" }

func (h *headerFlag) Set(value string) error {
	name, val, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("header %q is not in name:value form", value)
	}
	h.header.Add(strings.TrimSpace(name), strings.TrimSpace(val))
	return nil
}

// LoadConfig parses args (without the program name) into a Config.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{
		Headers:      http.Header{},
		LogLevel:     "info",
		PollInterval: 30,
	}

	fs := flag.NewFlagSet("openapi-bridge", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML config file")
	name := fs.String("name", "", "server name override")
	version := fs.String("server-version", "", "server version override")
	baseURL := fs.String("base-url", "", "base URL override for every call")
	apiKey := fs.String("api-key", "", "credential for the description's security scheme")
	httpAddr := fs.String("http", "", "listen address for streamable HTTP (default: stdio)")
	stdio := fs.Bool("stdio", false, "serve over stdio (the default)")
	summary := fs.Bool("summary", false, "print the tool summary and exit")
	interactive := fs.Bool("interactive", false, "prompt for a missing credential")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	poll := fs.Int("poll-interval", -1, "database polling interval in seconds, 0 disables")
	headers := &headerFlag{header: cfg.Headers}
	fs.Var(headers, "header", "extra default header as name:value, repeatable")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := applyFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if *name != "" {
		cfg.Name = *name
	}
	if *version != "" {
		cfg.Version = *version
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *stdio {
		cfg.HTTPAddr = ""
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *poll >= 0 {
		cfg.PollInterval = *poll
	}
	cfg.Summary = *summary
	cfg.Interactive = *interactive
	cfg.Sources = fs.Args()

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if fc.Name != "" {
		cfg.Name = fc.Name
	}
	if fc.Version != "" {
		cfg.Version = fc.Version
	}
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.PollInterval > 0 {
		cfg.PollInterval = fc.PollInterval
	}
	for name, value := range fc.Headers {
		// Headers given on the command line win over the file's.
		if cfg.Headers.Get(name) == "" {
			cfg.Headers.Set(name, value)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAPI_MCP_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("OPENAPI_MCP_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OPENAPI_MCP_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAPI_MCP_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("OPENAPI_MCP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
}

// DatabaseMode reports whether the server hosts the stored spec set
// instead of descriptions named on the command line.
func (c *Config) DatabaseMode() bool {
	return c.DatabaseURL != ""
}

// Validate checks the mode invariants before startup.
func (c *Config) Validate() error {
	if c.DatabaseMode() {
		if c.HTTPAddr == "" {
			return fmt.Errorf("database mode requires --http")
		}
		return nil
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("no API description given: pass a file path or URL")
	}
	return nil
}

// ParsedLogLevel maps the configured level name to a phuslu level.
func (c *Config) ParsedLogLevel() log.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "trace":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
