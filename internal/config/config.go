package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Provider data modes.
const (
	ModeMock = "mock"
	ModeAlt  = "alt"
	ModeAPI  = "api"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig       `json:"app"`
	MySQL     MySQLConfig     `json:"mysql"`
	Redis     RedisConfig     `json:"redis"`
	Browser   BrowserConfig   `json:"browser"`
	Email     EmailConfig     `json:"email"`
	Security  SecurityConfig  `json:"security"`
	Providers ProvidersConfig `json:"providers"`
}

// AppConfig is the base application configuration.
type AppConfig struct {
	Env             string        `json:"env"`               // local / prod
	LogLevel        string        `json:"log_level"`         // debug / info / warn / error
	HTTPAddr        string        `json:"http_addr"`         // API listen address
	ScanTimeout     time.Duration `json:"scan_timeout"`      // per-scan execution budget
	WorkerPoolSize  int           `json:"worker_pool_size"`  // concurrent scan executions
	QueueCapacity   int           `json:"queue_capacity"`    // scan job queue capacity
	JanitorInterval time.Duration `json:"janitor_interval"`  // retention sweep interval
	ScanRetention   int           `json:"scan_retention_days"`
	ObsRetention    int           `json:"observation_retention_days"`
	RateLimit       float64       `json:"rate_limit"` // browser page visits per second
	RateBurst       float64       `json:"rate_burst"`
}

// ProvidersConfig selects the data source per retailer.
//
// A kill-switch forces the mock provider regardless of the configured mode.
type ProvidersConfig struct {
	HomeDepotMode       string `json:"home_depot_mode"` // mock / alt / api
	HomeDepotKillswitch bool   `json:"home_depot_killswitch"`
	AceMode             string `json:"ace_mode"`
	AceKillswitch       bool   `json:"ace_killswitch"`

	ObservationTTLMinutes int `json:"observation_ttl_minutes"` // cache freshness window
	ObservationMaxSize    int `json:"observation_max_size"`    // eviction ceiling
}

// MySQLConfig is the MySQL database configuration.
type MySQLConfig struct {
	DSN string `json:"dsn"`
}

// RedisConfig is the Redis configuration.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
}

// BrowserConfig configures the headless browser used by the alt provider.
type BrowserConfig struct {
	BinPath     string        `json:"bin_path"`
	Headless    bool          `json:"headless"`
	PageTimeout time.Duration `json:"page_timeout"`
}

// EmailConfig configures the scan digest notifications.
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
}

// SecurityConfig holds auth settings.
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// Load reads configuration from a JSON file, applies defaults for unset
// fields and lets environment variables override everything.
//
// If the file does not exist the defaults (plus env overrides) are used.
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadOrDefault loads the configuration, falling back to defaults on error.
func LoadOrDefault(configPath ...string) *Config {
	cfg, err := Load(configPath...)
	if err != nil {
		fallback := getDefaultConfig()
		applyEnvOverrides(fallback)
		return fallback
	}
	return cfg
}

func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:             "local",
			LogLevel:        "info",
			HTTPAddr:        ":8081",
			ScanTimeout:     30 * time.Second,
			WorkerPoolSize:  10,
			QueueCapacity:   200,
			JanitorInterval: 10 * time.Minute,
			ScanRetention:   90,
			ObsRetention:    7,
			RateLimit:       2,
			RateBurst:       4,
		},
		MySQL: MySQLConfig{
			DSN: "root:password@tcp(localhost:3306)/dealradar?parseTime=true&loc=Local",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		Browser: BrowserConfig{
			BinPath:     "",
			Headless:    true,
			PageTimeout: 20 * time.Second,
		},
		Email: EmailConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
			SMTPUser:  "",
			SMTPPass:  "",
			FromEmail: "",
		},
		Security: SecurityConfig{
			JWTSecret: "dev_secret_change_me",
		},
		Providers: ProvidersConfig{
			HomeDepotMode:         ModeMock,
			AceMode:               ModeMock,
			ObservationTTLMinutes: 60,
			ObservationMaxSize:    10000,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.ScanTimeout == 0 {
		cfg.App.ScanTimeout = defaults.App.ScanTimeout
	}
	if cfg.App.WorkerPoolSize == 0 {
		cfg.App.WorkerPoolSize = defaults.App.WorkerPoolSize
	}
	if cfg.App.QueueCapacity == 0 {
		cfg.App.QueueCapacity = defaults.App.QueueCapacity
	}
	if cfg.App.JanitorInterval == 0 {
		cfg.App.JanitorInterval = defaults.App.JanitorInterval
	}
	if cfg.App.ScanRetention == 0 {
		cfg.App.ScanRetention = defaults.App.ScanRetention
	}
	if cfg.App.ObsRetention == 0 {
		cfg.App.ObsRetention = defaults.App.ObsRetention
	}
	if cfg.App.RateLimit == 0 {
		cfg.App.RateLimit = defaults.App.RateLimit
	}
	if cfg.App.RateBurst == 0 {
		cfg.App.RateBurst = defaults.App.RateBurst
	}
	if cfg.MySQL.DSN == "" {
		cfg.MySQL.DSN = defaults.MySQL.DSN
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaults.Redis.Addr
	}
	if cfg.Browser.PageTimeout == 0 {
		cfg.Browser.PageTimeout = defaults.Browser.PageTimeout
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = defaults.Security.JWTSecret
	}
	if cfg.Providers.HomeDepotMode == "" {
		cfg.Providers.HomeDepotMode = defaults.Providers.HomeDepotMode
	}
	if cfg.Providers.AceMode == "" {
		cfg.Providers.AceMode = defaults.Providers.AceMode
	}
	if cfg.Providers.ObservationTTLMinutes == 0 {
		cfg.Providers.ObservationTTLMinutes = defaults.Providers.ObservationTTLMinutes
	}
	if cfg.Providers.ObservationMaxSize == 0 {
		cfg.Providers.ObservationMaxSize = defaults.Providers.ObservationMaxSize
	}
}

func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("db_host", "DB_HOST")
	_ = viper.BindEnv("db_password", "DB_PASSWORD")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("smtp_pass", "SMTP_PASS")
	_ = viper.BindEnv("jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("chrome_bin", "CHROME_BIN")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("SCAN_TIMEOUT_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.App.ScanTimeout = time.Duration(i) * time.Millisecond
		}
	}
	if v := os.Getenv("APP_WORKER_POOL_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.WorkerPoolSize = i
		}
	}
	if v := os.Getenv("APP_QUEUE_CAPACITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.QueueCapacity = i
		}
	}
	if v := os.Getenv("APP_JANITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.JanitorInterval = d
		}
	}
	if v := os.Getenv("SCAN_RETENTION_DAYS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.ScanRetention = i
		}
	}
	if v := os.Getenv("OBSERVATION_RETENTION_DAYS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.ObsRetention = i
		}
	}
	if v := os.Getenv("APP_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateLimit = f
		}
	}
	if v := os.Getenv("APP_RATE_BURST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateBurst = f
		}
	}

	// Provider mode switches and kill-switches.
	if v := os.Getenv("HD_DATA_MODE"); v != "" {
		cfg.Providers.HomeDepotMode = normalizeMode(v)
	}
	if v := os.Getenv("HD_KILLSWITCH"); v != "" {
		cfg.Providers.HomeDepotKillswitch = parseBool(v)
	}
	if v := os.Getenv("ACE_DATA_MODE"); v != "" {
		cfg.Providers.AceMode = normalizeMode(v)
	}
	if v := os.Getenv("ACE_KILLSWITCH"); v != "" {
		cfg.Providers.AceKillswitch = parseBool(v)
	}
	if v := os.Getenv("OBSERVATION_CACHE_TTL_MINUTES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.Providers.ObservationTTLMinutes = i
		}
	}
	if v := os.Getenv("OBSERVATION_CACHE_MAX_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.Providers.ObservationMaxSize = i
		}
	}

	if v := viper.GetString("jwt_secret"); v != "" {
		cfg.Security.JWTSecret = v
	}

	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.MySQL.DSN = v
	} else if hasAnyEnv("DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME") || viper.GetString("db_host") != "" || viper.GetString("db_password") != "" {
		parsed := parseMySQLDSN(cfg.MySQL.DSN)
		if v := viper.GetString("db_host"); v != "" {
			port := "3306"
			if p := os.Getenv("DB_PORT"); p != "" {
				port = p
			}
			parsed.Addr = v + ":" + port
		}
		if v := os.Getenv("DB_USER"); v != "" {
			parsed.User = v
		}
		if v := viper.GetString("db_password"); v != "" {
			parsed.Passwd = v
		}
		if v := os.Getenv("DB_NAME"); v != "" {
			parsed.DBName = v
		}
		cfg.MySQL.DSN = parsed.FormatDSN()
	}

	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}

	if v := viper.GetString("chrome_bin"); v != "" {
		cfg.Browser.BinPath = v
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("BROWSER_PAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Browser.PageTimeout = d
		}
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUser = v
	}
	if v := viper.GetString("smtp_pass"); v != "" {
		cfg.Email.SMTPPass = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}
}

// normalizeMode lowers and validates a provider data mode; anything
// unrecognized degrades to mock rather than leaving an invalid mode in place.
func normalizeMode(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case ModeAlt:
		return ModeAlt
	case ModeAPI:
		return ModeAPI
	default:
		return ModeMock
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func hasAnyEnv(keys ...string) bool {
	for _, key := range keys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func parseMySQLDSN(dsn string) *mysql.Config {
	fallback := &mysql.Config{
		User:   "root",
		Net:    "tcp",
		Addr:   "localhost:3306",
		DBName: "dealradar",
		Params: map[string]string{
			"parseTime": "true",
			"loc":       "Local",
		},
	}
	if dsn == "" {
		return fallback
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fallback
	}
	return parsed
}

// UnmarshalJSON supports duration strings like "30s" in the JSON config.
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		ScanTimeout     string `json:"scan_timeout"`
		JanitorInterval string `json:"janitor_interval"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.ScanTimeout != "" {
		d, err := time.ParseDuration(aux.ScanTimeout)
		if err != nil {
			return fmt.Errorf("invalid scan_timeout format: %w", err)
		}
		a.ScanTimeout = d
	}
	if aux.JanitorInterval != "" {
		d, err := time.ParseDuration(aux.JanitorInterval)
		if err != nil {
			return fmt.Errorf("invalid janitor_interval format: %w", err)
		}
		a.JanitorInterval = d
	}
	return nil
}

// MarshalJSON renders durations as strings.
func (a AppConfig) MarshalJSON() ([]byte, error) {
	type Alias AppConfig
	return json.Marshal(&struct {
		ScanTimeout     string `json:"scan_timeout"`
		JanitorInterval string `json:"janitor_interval"`
		*Alias
	}{
		ScanTimeout:     a.ScanTimeout.String(),
		JanitorInterval: a.JanitorInterval.String(),
		Alias:           (*Alias)(&a),
	})
}

// ModeFor returns the configured data mode for a retailer, honouring the
// kill-switch: when tripped the provider is forced to mock regardless of the
// configured mode.
func (p ProvidersConfig) ModeFor(retailer string) string {
	switch retailer {
	case "home-depot":
		if p.HomeDepotKillswitch {
			return ModeMock
		}
		return normalizeMode(p.HomeDepotMode)
	case "ace-hardware":
		if p.AceKillswitch {
			return ModeMock
		}
		return normalizeMode(p.AceMode)
	default:
		return ModeMock
	}
}
