package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Bans      BansConfig      `yaml:"bans"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	VoiceLog  VoiceLogConfig  `yaml:"voice_log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	PlayFab   PlayFabConfig   `yaml:"playfab"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
	ProxyHeader string `yaml:"proxy_header"`
}

type LoggingConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	SSLMode         string `yaml:"sslmode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

type BanStoreDriver string

const (
	BanStoreFile     BanStoreDriver = "file"
	BanStoreDatabase BanStoreDriver = "database"
)

type BansConfig struct {
	Store         BanStoreDriver `yaml:"store"`
	File          string         `yaml:"file"`
	SweepInterval int            `yaml:"sweep_interval"`
}

type UploadsConfig struct {
	Directory string `yaml:"directory"`
	QuotaMB   int    `yaml:"quota_mb"`
	Extension string `yaml:"extension"`
}

type VoiceLogConfig struct {
	File     string `yaml:"file"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Burst             int    `yaml:"burst"`
	ProxyTrust        string `yaml:"proxy_trust"`
}

type PlayFabConfig struct {
	TitleID   string `yaml:"title_id"`
	SecretKey string `yaml:"secret_key"`
	Timeout   int    `yaml:"timeout"`
}

var (
	cfg                *Config
	once               sync.Once
	ErrConfigGenerated = fmt.Errorf("config file generated")
)

// Load reads the config once per process. A missing file is replaced by the
// default template and ErrConfigGenerated is returned.
func Load(path string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := generateDefaultConfig(path); err != nil {
				loadErr = fmt.Errorf("failed to generate config: %w", err)
				return
			}
			loadErr = ErrConfigGenerated
			return
		}

		cfg, loadErr = loadFile(path)
	})

	return cfg, loadErr
}

func Get() *Config {
	return cfg
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	c.setDefaults()
	c.loadEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func generateDefaultConfig(path string) error {
	defaultConfig := `server:
  host: "0.0.0.0"
  port: 3000
  body_limit_mb: 50
  # set to "X-Forwarded-For" when running behind a reverse proxy
  proxy_header: ""

logging:
  file: "logs/server.log"
  debug: false

# reports and (optionally) bans are kept here
database:
  driver: "sqlite"
  name: "data/server.db"

bans:
  # "file" keeps bans in a JSON document, "database" in the ban_records table
  store: "file"
  file: "data/bans.json"
  sweep_interval: 60

uploads:
  directory: "uploads"
  quota_mb: 500
  extension: ".json"

voice_log:
  file: "logs/voice_bans.log"
  max_bytes: 1048576

rate_limit:
  requests_per_minute: 30
  burst: 10
  proxy_trust: "none"

playfab:
  title_id: ""
  secret_key: ""
  timeout: 10
`
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(defaultConfig), 0644)
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyLimitMB == 0 {
		c.Server.BodyLimitMB = 50
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Name == "" {
		c.Database.Name = "data/server.db"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "postgres":
			c.Database.Port = 5432
		case "mysql":
			c.Database.Port = 3306
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.Bans.Store == "" {
		c.Bans.Store = BanStoreFile
	}
	if c.Bans.File == "" {
		c.Bans.File = "data/bans.json"
	}
	if c.Bans.SweepInterval == 0 {
		c.Bans.SweepInterval = 60
	}
	if c.Uploads.Directory == "" {
		c.Uploads.Directory = "uploads"
	}
	if c.Uploads.QuotaMB == 0 {
		c.Uploads.QuotaMB = 500
	}
	if c.Uploads.Extension == "" {
		c.Uploads.Extension = ".json"
	}
	if c.VoiceLog.File == "" {
		c.VoiceLog.File = "logs/voice_bans.log"
	}
	if c.VoiceLog.MaxBytes == 0 {
		c.VoiceLog.MaxBytes = 1 << 20
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 30
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.RateLimit.ProxyTrust == "" {
		c.RateLimit.ProxyTrust = "none"
	}
	if c.PlayFab.Timeout == 0 {
		c.PlayFab.Timeout = 10
	}
}

func (c *Config) loadEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("BAN_STORE_DRIVER"); v != "" {
		c.Bans.Store = BanStoreDriver(v)
	}
	if v := os.Getenv("PLAYFAB_TITLE_ID"); v != "" {
		c.PlayFab.TitleID = v
	}
	if v := os.Getenv("PLAYFAB_SECRET_KEY"); v != "" {
		c.PlayFab.SecretKey = v
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Bans.Store {
	case BanStoreFile, BanStoreDatabase:
	default:
		return fmt.Errorf("unsupported ban store: %s", c.Bans.Store)
	}
	if c.Bans.SweepInterval < 0 {
		return fmt.Errorf("bans.sweep_interval must be positive, got %d", c.Bans.SweepInterval)
	}
	if c.PlayFab.Timeout < 0 {
		return fmt.Errorf("playfab.timeout must be positive, got %d", c.PlayFab.Timeout)
	}
	if c.Uploads.QuotaMB < 0 {
		return fmt.Errorf("uploads.quota_mb must be positive, got %d", c.Uploads.QuotaMB)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (b *BansConfig) Interval() time.Duration {
	return time.Duration(b.SweepInterval) * time.Second
}

func (u *UploadsConfig) QuotaBytes() int64 {
	return int64(u.QuotaMB) << 20
}

func (p *PlayFabConfig) Enabled() bool {
	return p.TitleID != "" && p.SecretKey != ""
}
