// Package config loads the storefront service configuration.
//
// Sources are applied in increasing precedence: built-in defaults, an
// optional YAML file, environment variables (after .env loading), and
// command-line flags.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration.
type Config struct {
	Port        int    `yaml:"port"`
	CatalogFile string `yaml:"catalog_file"`
	Verbose     bool   `yaml:"verbose"`

	CheckoutDelay  time.Duration `yaml:"checkout_delay"`
	AdvisorDelay   time.Duration `yaml:"advisor_delay"`
	AdvisorTimeout time.Duration `yaml:"advisor_timeout"`

	Gemini  GeminiConfig  `yaml:"gemini"`
	Session SessionConfig `yaml:"session"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// GeminiConfig selects the remote advisor. An empty API key selects
// the local demo advisor.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:          8080,
		CheckoutDelay: 2 * time.Second,
		AdvisorDelay:  1500 * time.Millisecond,
		Gemini: GeminiConfig{
			Model: "gemini-3-flash-preview",
		},
		Session: SessionConfig{
			TTL: 24 * time.Hour,
		},
	}
}

// LoadDotEnv loads .env.local when APP_ENV is "local", otherwise .env.
// Variables already present in the environment win. A missing file is
// not an error. It returns the file that was loaded, if any.
func LoadDotEnv() (string, error) {
	file := ".env"
	if os.Getenv("APP_ENV") == "local" {
		file = ".env.local"
	}
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("loading %s: %w", file, err)
	}
	return file, nil
}

// Load builds the configuration from args (without the program name)
// and the process environment.
func Load(args []string) (*Config, error) {
	return load(args, os.Getenv)
}

func load(args []string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	fset := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	var (
		configFile     = fset.String("config", "", "Path to a YAML config file")
		port           = fset.Int("port", cfg.Port, "HTTP listen port")
		catalogFile    = fset.String("catalog", "", "Path to a YAML product catalog (default: built-in)")
		verbose        = fset.Bool("verbose", false, "Enable debug logging")
		checkoutDelay  = fset.Duration("checkout-delay", cfg.CheckoutDelay, "Simulated payment latency")
		advisorDelay   = fset.Duration("advisor-delay", cfg.AdvisorDelay, "Simulated demo advisor latency")
		advisorTimeout = fset.Duration("advisor-timeout", 0, "Bound on a single advisor reply (0 = none)")
		geminiModel    = fset.String("gemini-model", cfg.Gemini.Model, "Gemini model name")
		geminiBaseURL  = fset.String("gemini-base-url", "", "Gemini API base URL")
		sessionTTL     = fset.Duration("session-ttl", cfg.Session.TTL, "Session lifetime and idle timeout")
		webhookURL     = fset.String("webhook-url", "", "URL to deliver events to")
	)
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	path := *configFile
	if path == "" {
		path = getenv("STOREFRONT_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "catalog":
			cfg.CatalogFile = *catalogFile
		case "verbose":
			cfg.Verbose = *verbose
		case "checkout-delay":
			cfg.CheckoutDelay = *checkoutDelay
		case "advisor-delay":
			cfg.AdvisorDelay = *advisorDelay
		case "advisor-timeout":
			cfg.AdvisorTimeout = *advisorTimeout
		case "gemini-model":
			cfg.Gemini.Model = *geminiModel
		case "gemini-base-url":
			cfg.Gemini.BaseURL = *geminiBaseURL
		case "session-ttl":
			cfg.Session.TTL = *sessionTTL
		case "webhook-url":
			cfg.Webhook.URL = *webhookURL
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = p
	}
	setString(&c.CatalogFile, getenv("STOREFRONT_CATALOG_FILE"))
	if v := getenv("STOREFRONT_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOREFRONT_VERBOSE: %w", err)
		}
		c.Verbose = b
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"STOREFRONT_CHECKOUT_DELAY", &c.CheckoutDelay},
		{"STOREFRONT_ADVISOR_DELAY", &c.AdvisorDelay},
		{"STOREFRONT_ADVISOR_TIMEOUT", &c.AdvisorTimeout},
		{"SESSION_TTL", &c.Session.TTL},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	// API_KEY is the name the storefront UI build used.
	setString(&c.Gemini.APIKey, getenv("API_KEY"))
	setString(&c.Gemini.APIKey, getenv("GEMINI_API_KEY"))
	setString(&c.Gemini.Model, getenv("GEMINI_MODEL"))
	setString(&c.Gemini.BaseURL, getenv("GEMINI_BASE_URL"))
	setString(&c.Session.Secret, getenv("SESSION_SECRET"))
	setString(&c.Webhook.URL, getenv("WEBHOOK_URL"))
	setString(&c.Webhook.Secret, getenv("WEBHOOK_SECRET"))
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.CheckoutDelay < 0 {
		errs = append(errs, errors.New("checkout delay must not be negative"))
	}
	if c.AdvisorDelay < 0 {
		errs = append(errs, errors.New("advisor delay must not be negative"))
	}
	if c.AdvisorTimeout < 0 {
		errs = append(errs, errors.New("advisor timeout must not be negative"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	return errors.Join(errs...)
}

// RemoteAdvisor reports whether the Gemini advisor is configured.
func (c *Config) RemoteAdvisor() bool {
	return c.Gemini.APIKey != ""
}

// EnsureSessionSecret fills in a random secret when none is configured
// and reports whether it did. Tokens then do not survive a restart.
func (c *Config) EnsureSessionSecret() (bool, error) {
	if c.Session.Secret != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("generating session secret: %w", err)
	}
	c.Session.Secret = hex.EncodeToString(buf)
	return true, nil
}
