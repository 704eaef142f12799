package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration acepta "30m", "2h", etc. en el YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", n.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// D devuelve el time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level  string `yaml:"level"`
		Output string `yaml:"output"`
	} `yaml:"log"`

	Server struct {
		Addr            string   `yaml:"addr"`
		AdminKey        string   `yaml:"admin_key"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
		// TrustProxy usa X-Forwarded-For como IP del cliente (detrás de un proxy propio).
		TrustProxy bool `yaml:"trust_proxy"`
		// RateLimit por IP sobre lookups y escaneos; Requests 0 = sin límite.
		RateLimit struct {
			Requests int      `yaml:"requests"`
			Window   Duration `yaml:"window"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	// Source fuente autoritativa (la planilla).
	Source struct {
		Driver        string `yaml:"driver"` // memory | sqlite | pg
		Path          string `yaml:"path"`
		DSN           string `yaml:"dsn"`
		ProductsSheet string `yaml:"products_sheet"`
		Postgres      struct {
			MaxConns        int      `yaml:"max_conns"`
			MinConns        int      `yaml:"min_conns"`
			ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"source"`

	Layout struct {
		HeaderRows  int    `yaml:"header_rows"`
		CodeColumn  int    `yaml:"code_column"`
		NameColumn  int    `yaml:"name_column"`
		PriceColumn int    `yaml:"price_column"`
		Width       int    `yaml:"width"`
		SampleWidth int    `yaml:"sample_width"`
		DefaultName string `yaml:"default_name"`
	} `yaml:"layout"`

	Cache struct {
		Driver            string   `yaml:"driver"` // memory | redis
		Prefix            string   `yaml:"prefix"`
		Key               string   `yaml:"key"`
		InProcessTTL      Duration `yaml:"in_process_ttl"`
		EphemeralTTL      Duration `yaml:"ephemeral_ttl"`
		EphemeralStoreTTL Duration `yaml:"ephemeral_store_ttl"`
		Redis             struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Snapshot struct {
		Driver string `yaml:"driver"` // none | fs | sqlite | pg | s3
		Name   string `yaml:"name"`
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"`
		Async  bool   `yaml:"async"`
		S3     struct {
			Bucket          string `yaml:"bucket"`
			Region          string `yaml:"region"`
			Endpoint        string `yaml:"endpoint"`
			Prefix          string `yaml:"prefix"`
			PathStyle       bool   `yaml:"path_style"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
		} `yaml:"s3"`
	} `yaml:"snapshot"`

	POS struct {
		PurchasesSheet string `yaml:"purchases_sheet"`
		SalesSheet     string `yaml:"sales_sheet"`
		NotFoundMarker string `yaml:"not_found_marker"`
	} `yaml:"pos"`

	Background struct {
		QueueSize   int      `yaml:"queue_size"`
		TaskTimeout Duration `yaml:"task_timeout"`
	} `yaml:"background"`
}

// Load lee path (vacío = sólo defaults), aplica defaults, env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default config sin archivo ni entorno.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(15 * time.Second)
	}
	if c.Server.RateLimit.Window == 0 {
		c.Server.RateLimit.Window = Duration(time.Minute)
	}

	if c.Source.Driver == "" {
		c.Source.Driver = "memory"
	}
	if c.Source.ProductsSheet == "" {
		c.Source.ProductsSheet = "products"
	}

	// layout de la hoja de productos original
	l := &c.Layout
	if l.HeaderRows == 0 {
		l.HeaderRows = 1
	}
	if l.CodeColumn == 0 {
		l.CodeColumn = 4
	}
	if l.NameColumn == 0 {
		l.NameColumn = 2
	}
	if l.PriceColumn == 0 {
		l.PriceColumn = 5
	}
	if l.Width == 0 {
		l.Width = 5
	}
	if l.SampleWidth == 0 {
		l.SampleWidth = 5
	}
	if l.DefaultName == "" {
		l.DefaultName = "Untitled"
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "hellopos"
	}
	if c.Cache.Key == "" {
		c.Cache.Key = "products_catalog_v1"
	}
	if c.Cache.InProcessTTL == 0 {
		c.Cache.InProcessTTL = Duration(30 * time.Minute)
	}
	if c.Cache.EphemeralTTL == 0 {
		c.Cache.EphemeralTTL = Duration(2 * time.Hour)
	}
	if c.Cache.EphemeralStoreTTL == 0 {
		c.Cache.EphemeralStoreTTL = c.Cache.EphemeralTTL
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}

	if c.Snapshot.Driver == "" {
		c.Snapshot.Driver = "fs"
	}
	if c.Snapshot.Path == "" && c.Snapshot.Driver == "fs" {
		c.Snapshot.Path = "data"
	}

	if c.POS.PurchasesSheet == "" {
		c.POS.PurchasesSheet = "purchases"
	}
	if c.POS.SalesSheet == "" {
		c.POS.SalesSheet = "sales"
	}
	if c.POS.NotFoundMarker == "" {
		c.POS.NotFoundMarker = "❌ Not found"
	}

	if c.Background.QueueSize == 0 {
		c.Background.QueueSize = 16
	}
	if c.Background.TaskTimeout == 0 {
		c.Background.TaskTimeout = Duration(30 * time.Second)
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvFloat(key string) (float64, bool) {
	if s, ok := getEnvStr(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return Duration(d), true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables de entorno (HELLOPOS_* y algunos alias comunes).
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("HELLOPOS_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("HELLOPOS_ADMIN_KEY"); ok {
		c.Server.AdminKey = v
	}
	if v, ok := getEnvInt("HELLOPOS_RATE_LIMIT"); ok {
		c.Server.RateLimit.Requests = v
	}
	if v, ok := getEnvBool("HELLOPOS_TRUST_PROXY"); ok {
		c.Server.TrustProxy = v
	}

	// SOURCE
	if v, ok := getEnvStr("HELLOPOS_SOURCE_DRIVER"); ok {
		c.Source.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("HELLOPOS_SOURCE_PATH"); ok {
		c.Source.Path = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Source.DSN = v
	}
	if v, ok := getEnvStr("HELLOPOS_SOURCE_DSN"); ok {
		c.Source.DSN = v
	}
	if v, ok := getEnvFloat("HELLOPOS_SOURCE_RPS"); ok {
		c.Source.RateLimit.RPS = v
	}
	if v, ok := getEnvInt("HELLOPOS_SOURCE_BURST"); ok {
		c.Source.RateLimit.Burst = v
	}

	// CACHE
	if v, ok := getEnvStr("HELLOPOS_CACHE_DRIVER"); ok {
		c.Cache.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvDur("HELLOPOS_IN_PROCESS_TTL"); ok {
		c.Cache.InProcessTTL = v
	}
	if v, ok := getEnvDur("HELLOPOS_EPHEMERAL_TTL"); ok {
		c.Cache.EphemeralTTL = v
	}
	if v, ok := getEnvDur("HELLOPOS_EPHEMERAL_STORE_TTL"); ok {
		c.Cache.EphemeralStoreTTL = v
	}

	// SNAPSHOT
	if v, ok := getEnvStr("HELLOPOS_SNAPSHOT_DRIVER"); ok {
		c.Snapshot.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("HELLOPOS_SNAPSHOT_PATH"); ok {
		c.Snapshot.Path = v
	}
	if v, ok := getEnvStr("HELLOPOS_SNAPSHOT_DSN"); ok {
		c.Snapshot.DSN = v
	}
	if v, ok := getEnvBool("HELLOPOS_SNAPSHOT_ASYNC"); ok {
		c.Snapshot.Async = v
	}
	if v, ok := getEnvStr("HELLOPOS_S3_BUCKET"); ok {
		c.Snapshot.S3.Bucket = v
	}
	if v, ok := getEnvStr("HELLOPOS_S3_ENDPOINT"); ok {
		c.Snapshot.S3.Endpoint = v
	}
	if v, ok := getEnvStr("AWS_REGION"); ok && c.Snapshot.S3.Region == "" {
		c.Snapshot.S3.Region = v
	}
}

var (
	sourceDrivers   = []string{"memory", "sqlite", "pg"}
	cacheDrivers    = []string{"memory", "redis"}
	snapshotDrivers = []string{"none", "fs", "sqlite", "pg", "s3"}
)

func oneOf(v string, opts []string) bool {
	for _, o := range opts {
		if v == o {
			return true
		}
	}
	return false
}

// Validate junta todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Source.Driver, sourceDrivers) {
		errs = append(errs, fmt.Errorf("source.driver %q not in %v", c.Source.Driver, sourceDrivers))
	}
	if c.Source.Driver == "pg" && c.Source.DSN == "" {
		errs = append(errs, errors.New("source.dsn required for pg"))
	}
	if !oneOf(c.Cache.Driver, cacheDrivers) {
		errs = append(errs, fmt.Errorf("cache.driver %q not in %v", c.Cache.Driver, cacheDrivers))
	}
	if !oneOf(c.Snapshot.Driver, snapshotDrivers) {
		errs = append(errs, fmt.Errorf("snapshot.driver %q not in %v", c.Snapshot.Driver, snapshotDrivers))
	}
	if c.Snapshot.Driver == "s3" && c.Snapshot.S3.Bucket == "" {
		errs = append(errs, errors.New("snapshot.s3.bucket required for s3"))
	}
	if c.Snapshot.Driver == "pg" && c.Snapshot.DSN == "" && c.Source.Driver != "pg" {
		errs = append(errs, errors.New("snapshot.dsn required for pg unless source is pg"))
	}
	if c.Cache.InProcessTTL <= 0 || c.Cache.EphemeralTTL <= 0 {
		errs = append(errs, errors.New("cache ttls must be > 0"))
	}
	if c.Cache.EphemeralStoreTTL < c.Cache.EphemeralTTL {
		errs = append(errs, fmt.Errorf("cache.ephemeral_store_ttl (%s) must be >= cache.ephemeral_ttl (%s)",
			c.Cache.EphemeralStoreTTL.D(), c.Cache.EphemeralTTL.D()))
	}
	if c.Server.RateLimit.Requests < 0 || c.Server.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("server.rate_limit: requests must be >= 0 and window > 0"))
	}
	if c.Source.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("source.rate_limit.rps must be >= 0"))
	}
	return errors.Join(errs...)
}
