package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment names recognised by APP_ENV
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Config represents the application configuration
type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
		TrustProxy   bool          `yaml:"trust_proxy" default:"true"`
		AllowOrigins []string      `yaml:"allow_origins"`
	} `yaml:"server"`

	CMS struct {
		URL      string        `yaml:"url"`
		APIToken string        `yaml:"api_token"`
		Timeout  time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"cms"`

	Turnstile struct {
		SecretKey string        `yaml:"secret_key"`
		SiteKey   string        `yaml:"site_key"`
		VerifyURL string        `yaml:"verify_url" default:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
		Bypass    bool          `yaml:"bypass"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"turnstile"`

	CRM struct {
		Provider  string        `yaml:"provider" default:"hubspot"`
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url" default:"https://api.hubapi.com"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		RateLimit int           `yaml:"rate_limit" default:"100"` // calls per 10 seconds
	} `yaml:"crm"`

	RateLimit struct {
		Window       time.Duration `yaml:"window" default:"60s"`
		MaxKeys      int           `yaml:"max_keys" default:"500"`
		ApplyLimit   int           `yaml:"apply_limit" default:"5"`
		InquiryLimit int           `yaml:"inquiry_limit" default:"5"`
		KeyPrefix    string        `yaml:"key_prefix" default:"ratelimit"`
	} `yaml:"rate_limit"`

	Redis struct {
		URL      string        `yaml:"url"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`

	Uploads struct {
		MaxFileSize int64 `yaml:"max_file_size" default:"10485760"`
	} `yaml:"uploads"`

	Audit struct {
		Enabled bool   `yaml:"enabled" default:"false"`
		Driver  string `yaml:"driver" default:"sqlite"`
		DSN     string `yaml:"dsn" default:"careers-audit.db"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

var (
	bracedEnvPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvPattern   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands ${VAR} and $VAR references, leaving unknown variables untouched
func expandEnvVars(s string) string {
	s = bracedEnvPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareEnvPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	config := &Config{}
	config.Environment = EnvDevelopment

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.TrustProxy = true
	config.Server.AllowOrigins = []string{"*"}

	config.CMS.Timeout = 15 * time.Second

	config.Turnstile.VerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	config.Turnstile.Timeout = 10 * time.Second

	config.CRM.Provider = "hubspot"
	config.CRM.BaseURL = "https://api.hubapi.com"
	config.CRM.Timeout = 10 * time.Second
	config.CRM.RateLimit = 100

	config.RateLimit.Window = 60 * time.Second
	config.RateLimit.MaxKeys = 500
	config.RateLimit.ApplyLimit = 5
	config.RateLimit.InquiryLimit = 5
	config.RateLimit.KeyPrefix = "ratelimit"

	config.Redis.Timeout = 5 * time.Second

	config.Uploads.MaxFileSize = 10 * 1024 * 1024

	config.Audit.Driver = "sqlite"
	config.Audit.DSN = "careers-audit.db"

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
				return nil, err
			}
		}
	}

	config.loadFromEnv()

	return config, nil
}

// IsProduction reports whether the service runs in a production context
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// RedisConfigured reports whether an external rate-limit store is configured
func (c *Config) RedisConfigured() bool {
	return c.Redis.URL != ""
}

// CMSConfigured reports whether both the CMS URL and bearer token are set
func (c *Config) CMSConfigured() bool {
	return c.CMS.URL != "" && c.CMS.APIToken != ""
}

// Warnings lists degraded-but-running conditions worth reporting at startup
func (c *Config) Warnings() []string {
	var warnings []string

	if c.CMS.URL == "" {
		warnings = append(warnings, "STRAPI_URL is not set - submissions will be rejected with 503")
	} else if c.CMS.APIToken == "" {
		warnings = append(warnings, "STRAPI_API_TOKEN is not set - submissions will be rejected with 500")
	}

	if !c.RedisConfigured() {
		warnings = append(warnings, "Redis not configured - using in-memory rate limiting (single process only)")
	}

	if c.Turnstile.SecretKey == "" || c.Turnstile.SiteKey == "" {
		if c.IsProduction() {
			warnings = append(warnings, "Turnstile not configured - all submissions will fail the security check")
		} else {
			warnings = append(warnings, "Turnstile not configured - CAPTCHA protection disabled")
		}
	}

	if c.CRM.APIKey == "" && !strings.EqualFold(c.CRM.Provider, "noop") {
		warnings = append(warnings, "HubSpot API key not configured - CRM sync disabled")
	}

	return warnings
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if env := firstEnv("APP_ENV", "ENVIRONMENT", "GO_ENV"); env != "" {
		c.Environment = strings.ToLower(env)
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if trust := os.Getenv("TRUST_PROXY"); trust != "" {
		c.Server.TrustProxy = parseBool(trust)
	}

	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		c.Server.AllowOrigins = splitList(origins)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	// CMS
	if url := firstEnv("STRAPI_URL", "NEXT_PUBLIC_STRAPI_URL"); url != "" {
		c.CMS.URL = strings.TrimRight(url, "/")
	}

	if token := os.Getenv("STRAPI_API_TOKEN"); token != "" {
		c.CMS.APIToken = token
	}

	if timeout := os.Getenv("STRAPI_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.CMS.Timeout = d
		}
	}

	// Turnstile
	if secret := os.Getenv("TURNSTILE_SECRET_KEY"); secret != "" {
		c.Turnstile.SecretKey = secret
	}

	if siteKey := firstEnv("TURNSTILE_SITE_KEY", "NEXT_PUBLIC_TURNSTILE_SITE_KEY"); siteKey != "" {
		c.Turnstile.SiteKey = siteKey
	}

	if bypass := os.Getenv("TURNSTILE_BYPASS"); bypass != "" {
		c.Turnstile.Bypass = parseBool(bypass)
	}

	if verifyURL := os.Getenv("TURNSTILE_VERIFY_URL"); verifyURL != "" {
		c.Turnstile.VerifyURL = verifyURL
	}

	// CRM
	if provider := os.Getenv("CRM_PROVIDER"); provider != "" {
		c.CRM.Provider = strings.ToLower(provider)
	}

	if apiKey := firstEnv("HUBSPOT_API_KEY", "HUBSPOT_ACCESS_TOKEN"); apiKey != "" {
		c.CRM.APIKey = apiKey
	}

	if baseURL := os.Getenv("HUBSPOT_BASE_URL"); baseURL != "" {
		c.CRM.BaseURL = strings.TrimRight(baseURL, "/")
	}

	// Rate limiting
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			c.RateLimit.Window = d
		}
	}

	if maxKeys := os.Getenv("RATE_LIMIT_MAX_KEYS"); maxKeys != "" {
		if n, err := strconv.Atoi(maxKeys); err == nil {
			c.RateLimit.MaxKeys = n
		}
	}

	if limit := os.Getenv("RATE_LIMIT_APPLY"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			c.RateLimit.ApplyLimit = n
		}
	}

	if limit := os.Getenv("RATE_LIMIT_INQUIRY"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			c.RateLimit.InquiryLimit = n
		}
	}

	if redisURL := firstEnv("RATE_LIMIT_REDIS_URL", "REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := firstEnv("RATE_LIMIT_REDIS_TOKEN", "REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	// Audit trail
	if enabled := os.Getenv("AUDIT_ENABLED"); enabled != "" {
		c.Audit.Enabled = parseBool(enabled)
	}

	if driver := os.Getenv("AUDIT_DRIVER"); driver != "" {
		c.Audit.Driver = strings.ToLower(driver)
	}

	if dsn := os.Getenv("AUDIT_DSN"); dsn != "" {
		c.Audit.DSN = dsn
	}

	if enabled := os.Getenv("METRICS_ENABLED"); enabled != "" {
		c.Metrics.Enabled = parseBool(enabled)
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func parseBool(s string) bool {
	return s == "true" || s == "1"
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
