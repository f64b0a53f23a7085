package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "AGENTCHAT_"

type DBConfig struct {
	User string
	Pass string
	Host string
	Name string
}

// Enabled reports whether a SQL database is configured.
func (d DBConfig) Enabled() bool {
	return d.Host != "" && d.Name != ""
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", d.User, d.Pass, d.Host, d.Name)
}

type Config struct {
	Provider      string
	Model         string
	APIURL        string
	APIKey        string
	GeminiAPIKey  string
	ModelTimeout  string
	ToolTimeout   string
	MaxTokens     int
	Temperature   float32
	ContextWindow int

	MaxConcurrentRuns int64
	LockPruneSpec     string
	LockIdle          time.Duration

	ListenAddr string
	APIKeys    []string

	PlatformName string
	AgentName    string

	DB DBConfig

	// Tools holds the raw configuration of each built-in tool, keyed by tool name.
	Tools      map[string]map[string]string
	MCPServers []string
	MCPToken   string
}

// Load reads the configuration from the environment, after merging a
// .env file from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var errs []error
	c := &Config{
		Provider:     get("LLM_PROVIDER", "openai"),
		Model:        get("MODEL", ""),
		APIURL:       get("LLM_API_URL", ""),
		APIKey:       get("LLM_API_KEY", ""),
		GeminiAPIKey: get("GEMINI_API_KEY", ""),
		ModelTimeout: get("LLM_TIMEOUT", "2m"),
		ToolTimeout:  get("TOOL_TIMEOUT", "1m"),

		LockPruneSpec: get("LOCK_IDLE_PRUNE", "@every 10m"),
		ListenAddr:    get("LISTEN_ADDR", ":3000"),
		APIKeys:       list("API_KEYS"),
		PlatformName:  get("PLATFORM_NAME", ""),
		AgentName:     get("AGENT_NAME", ""),

		DB: DBConfig{
			User: os.Getenv("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: os.Getenv("DB_HOST"),
			Name: os.Getenv("DB_NAME"),
		},

		MCPServers: list("MCP_SERVERS"),
		MCPToken:   get("MCP_TOKEN", ""),
	}

	c.MaxTokens = getInt("MAX_TOKENS", 1024, &errs)
	c.ContextWindow = getInt("CONTEXT_WINDOW", 30, &errs)
	c.MaxConcurrentRuns = int64(getInt("MAX_CONCURRENT_RUNS", 16, &errs))

	temp, err := strconv.ParseFloat(get("TEMPERATURE", "0.2"), 32)
	if err != nil {
		errs = append(errs, fmt.Errorf("%sTEMPERATURE: %w", envPrefix, err))
	}
	c.Temperature = float32(temp)

	idle, err := time.ParseDuration(get("LOCK_IDLE", "30m"))
	if err != nil {
		errs = append(errs, fmt.Errorf("%sLOCK_IDLE: %w", envPrefix, err))
	}
	c.LockIdle = idle

	c.Tools = map[string]map[string]string{
		"send_email": {
			"smtpServer":   get("SMTP_SERVER", ""),
			"smtpInsecure": get("SMTP_INSECURE", "false"),
			"username":     get("SMTP_USERNAME", ""),
			"password":     get("SMTP_PASSWORD", ""),
			"email":        get("SMTP_FROM", ""),
			"name":         get("SMTP_FROM_NAME", ""),
		},
		"webhook": {
			"url":         get("WEBHOOK_URL", ""),
			"method":      get("WEBHOOK_METHOD", ""),
			"contentType": get("WEBHOOK_CONTENT_TYPE", "application/json"),
		},
	}

	if c.Model == "" {
		errs = append(errs, fmt.Errorf("%sMODEL not set", envPrefix))
	}
	switch c.Provider {
	case "openai":
		if c.APIURL == "" && c.APIKey == "" {
			errs = append(errs, fmt.Errorf("%sLLM_API_URL or %sLLM_API_KEY must be set", envPrefix, envPrefix))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("%sGEMINI_API_KEY not set", envPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%sLLM_PROVIDER: unknown provider %q", envPrefix, c.Provider))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	v := get(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return def
	}
	return n
}

func list(key string) []string {
	var out []string
	for _, s := range strings.Split(get(key, ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
