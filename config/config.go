package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jobfeed/models"
)

type Config struct {
	Env            string
	Scheduler      SchedulerConfig
	Scraper        ScraperConfig
	Store          StoreConfig
	Proxy          ProxyConfig
	RabbitMQ       RabbitMQConfig
	Redis          RedisConfig
	S3             S3Config
	ExportInterval time.Duration
	HTTPAddr       string
	LogFile        string
	SourcesDir     string
	Sources        map[string]*SourceConfig
}

type SchedulerConfig struct {
	Enabled      bool
	Cron         string
	StartupDelay time.Duration
}

type ScraperConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

type StoreConfig struct {
	Driver      string // sqlite, postgres, memory
	DBPath      string
	DatabaseURL string
}

type ProxyConfig struct {
	URL string
}

type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

type RedisConfig struct {
	URL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional: DO Spaces, R2, MinIO
	AccessKeyID     string
	SecretAccessKey string
}

// SourceConfig is the static definition of one provider, one YAML file per
// source under SourcesDir.
type SourceConfig struct {
	ID         string                 `yaml:"id"`
	Name       string                 `yaml:"name"`
	BaseURL    string                 `yaml:"base_url"`
	Handler    string                 `yaml:"handler"`
	Endpoints  []string               `yaml:"endpoints"`
	Active     *bool                  `yaml:"active"`
	Priority   int                    `yaml:"priority"`
	RateLimit  models.RateLimitPolicy `yaml:"rate_limit"`
	Tags       []string               `yaml:"tags"`
	Country    string                 `yaml:"country"`
	Currency   string                 `yaml:"currency"`
	ResultsKey string                 `yaml:"results_key"`
	Fields     map[string]string      `yaml:"fields"`
	Selectors  Selectors              `yaml:"selectors"`
	MockCount  int                    `yaml:"mock_count"`
}

// Selectors are CSS selectors for html sources. Item scopes the rest.
type Selectors struct {
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Company     string `yaml:"company"`
	Location    string `yaml:"location"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Salary      string `yaml:"salary"`
	Posted      string `yaml:"posted"`
	Tags        string `yaml:"tags"`
}

const (
	DefaultCron         = "@every 12h"
	DefaultStartupDelay = 30 * time.Second
	DefaultRetryDelay   = 30 * time.Second
	DefaultMaxRetries   = 3
	defaultPriority     = 5
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Scheduler: SchedulerConfig{
			Cron:         getEnv("SCRAPE_CRON", DefaultCron),
			StartupDelay: getEnvDuration("SCRAPE_STARTUP_DELAY", DefaultStartupDelay),
		},
		Scraper: ScraperConfig{
			MaxRetries: getEnvInt("SCRAPE_MAX_RETRIES", DefaultMaxRetries),
			RetryDelay: getEnvDuration("SCRAPE_RETRY_DELAY", DefaultRetryDelay),
		},
		Store: StoreConfig{
			Driver:      getEnv("STORE_DRIVER", "sqlite"),
			DBPath:      getEnv("DB_PATH", "jobs.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "jobs"),
			RoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "postings"),
			QueueName:  getEnv("RABBITMQ_QUEUE", "job_postings"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		ExportInterval: getEnvDuration("EXPORT_INTERVAL", 0),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		LogFile:        getEnv("LOG_FILE", "daemon.log"),
		SourcesDir:     getEnv("SOURCES_DIR", filepath.Join("config", "sources")),
		Sources:        make(map[string]*SourceConfig),
	}

	cfg.Scheduler.Enabled = schedulerEnabled(cfg.Env)

	if cfg.Scraper.MaxRetries < 0 {
		cfg.Scraper.MaxRetries = 0
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// schedulerEnabled honours an explicit SCRAPE_SCHEDULER_ENABLED and otherwise
// runs the schedule only in production.
func schedulerEnabled(env string) bool {
	if val := os.Getenv("SCRAPE_SCHEDULER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return strings.EqualFold(env, "production")
}

func (c *Config) loadSourceConfigs() error {
	entries, err := os.ReadDir(c.SourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(c.SourcesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var src SourceConfig
		if err := yaml.Unmarshal(data, &src); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if src.ID == "" {
			return fmt.Errorf("parse %s: missing id", path)
		}
		if _, dup := c.Sources[src.ID]; dup {
			return fmt.Errorf("parse %s: duplicate source id %q", path, src.ID)
		}

		src.applyDefaults()
		c.Sources[src.ID] = &src
	}

	return nil
}

func (s *SourceConfig) applyDefaults() {
	if s.Name == "" {
		s.Name = s.ID
	}
	if s.Handler == "" {
		s.Handler = "json"
	}
	if s.Priority == 0 {
		s.Priority = defaultPriority
	}
	if s.Priority < 1 {
		s.Priority = 1
	}
	if s.Priority > 10 {
		s.Priority = 10
	}
	if s.RateLimit.RequestsPerMinute < 0 {
		s.RateLimit.RequestsPerMinute = 0
	}
	if s.RateLimit.DelayBetweenRequestsMs < 0 {
		s.RateLimit.DelayBetweenRequestsMs = 0
	}
}

// IsActive reports the configured active flag; sources are active unless
// they say otherwise.
func (s *SourceConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

// ToSource builds the runtime record with zeroed counters.
func (s *SourceConfig) ToSource() models.Source {
	return models.Source{
		ID:        s.ID,
		Name:      s.Name,
		BaseURL:   s.BaseURL,
		Endpoints: append([]string(nil), s.Endpoints...),
		Handler:   s.Handler,
		IsActive:  s.IsActive(),
		Priority:  s.Priority,
		RateLimit: s.RateLimit,
		Tags:      append([]string(nil), s.Tags...),
		Country:   s.Country,
		Currency:  s.Currency,
	}
}

// SourceIDs returns configured ids in stable order.
func (c *Config) SourceIDs() []string {
	ids := make([]string, 0, len(c.Sources))
	for id := range c.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
