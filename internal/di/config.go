package di

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/usecase/exchange"
)

type Config struct {
	Site        string
	UserDataDir string

	Host string
	Port int

	BrowserHeadless  bool
	BrowserBin       string
	BrowserStealth   bool
	BrowserNoSandbox bool
	BrowserTrace     bool
	SelectorsFile    string
	ElementTimeout   time.Duration

	QueuePolicy       exchange.Policy
	QueueMaxWait      time.Duration
	CompletionTimeout time.Duration
	UploadTimeout     time.Duration
	PollInterval      time.Duration
	PollMaxInterval   time.Duration

	UploadDir              string
	AttachmentAllowPaths   bool
	AttachmentMaxDimension int
	AttachmentMaxPixels    int
	DiagnosticsDir         string

	LogLevel    string
	LogDir      string
	LogJSON     bool
	AccessLog   bool
	CORSOrigins []string
}

// LoadConfig reads the bridge settings. SITE and USER_DATA_DIR are required.
func LoadConfig(env output.ConfigPort) (Config, error) {
	policy, err := exchange.ParsePolicy(env.Get("QUEUE_POLICY"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Site:        strings.TrimSpace(env.Get("SITE")),
		UserDataDir: strings.TrimSpace(env.Get("USER_DATA_DIR")),

		Host: env.GetWithDefault("HOST", "0.0.0.0"),
		Port: env.GetInt("PORT", 5000),

		BrowserHeadless:  env.GetBool("HEADLESS", true),
		BrowserBin:       env.Get("BROWSER_BIN"),
		BrowserStealth:   env.GetBool("STEALTH", true),
		BrowserNoSandbox: env.GetBool("NO_SANDBOX", false),
		BrowserTrace:     env.GetBool("BROWSER_TRACE", false),
		SelectorsFile:    env.Get("SELECTORS_FILE"),
		ElementTimeout:   env.GetDuration("ELEMENT_TIMEOUT", 10*time.Second),

		QueuePolicy:       policy,
		QueueMaxWait:      env.GetDuration("QUEUE_MAX_WAIT", 0),
		CompletionTimeout: env.GetDuration("COMPLETION_TIMEOUT", 10*time.Minute),
		UploadTimeout:     env.GetDuration("UPLOAD_TIMEOUT", 60*time.Second),
		PollInterval:      env.GetDuration("POLL_INTERVAL", 250*time.Millisecond),
		PollMaxInterval:   env.GetDuration("POLL_MAX_INTERVAL", 2*time.Second),

		UploadDir:              env.GetWithDefault("UPLOAD_DIR", "uploaded_images"),
		AttachmentAllowPaths:   env.GetBool("ATTACHMENT_ALLOW_PATHS", false),
		AttachmentMaxDimension: env.GetInt("ATTACHMENT_MAX_DIMENSION", 4096),
		AttachmentMaxPixels:    env.GetInt("ATTACHMENT_MAX_PIXELS", 64_000_000),
		DiagnosticsDir:         env.Get("DIAGNOSTICS_DIR"),

		LogLevel:    env.GetWithDefault("LOG_LEVEL", "info"),
		LogDir:      env.GetWithDefault("LOG_DIR", "log"),
		LogJSON:     env.GetBool("LOG_JSON", true),
		AccessLog:   env.GetBool("ACCESS_LOG", true),
		CORSOrigins: splitList(env.GetWithDefault("CORS_ORIGINS", "*")),
	}

	var missing []string
	if cfg.Site == "" {
		missing = append(missing, "SITE")
	}
	if cfg.UserDataDir == "" {
		missing = append(missing, "USER_DATA_DIR")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.CompletionTimeout <= 0 || cfg.UploadTimeout <= 0 {
		return Config{}, errors.New("COMPLETION_TIMEOUT and UPLOAD_TIMEOUT must be positive")
	}
	return cfg, nil
}

func (c Config) poller() exchange.Poller {
	p := exchange.DefaultPoller()
	if c.PollInterval > 0 {
		p.Interval = c.PollInterval
	}
	if c.PollMaxInterval > 0 {
		p.MaxInterval = c.PollMaxInterval
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
