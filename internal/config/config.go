package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

var (
	ErrMissingJWTSecret    = errors.New("auth.jwt_secret is required")
	ErrUnknownCacheBackend = errors.New("unknown cache backend")
	ErrInvalidShortCode    = errors.New("invalid short_code settings")
)

type Config struct {
	Env        string `yaml:"env"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      Redis     `yaml:"redis"`
	Cache      Cache     `yaml:"cache"`
	ShortCode  ShortCode `yaml:"short_code"`
	Auth       Auth      `yaml:"auth"`
	Log        Log       `yaml:"log"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

var defaultRedis = Redis{
	Addr:         "localhost:6379",
	DialTimeout:  time.Second,
	ReadTimeout:  500 * time.Millisecond,
	WriteTimeout: 500 * time.Millisecond,
	PoolSize:     10,
}

// Cache selects the cache backend and the lifetimes of its entries.
// Timeout bounds every single cache call.
type Cache struct {
	Backend   string        `yaml:"backend"`
	Timeout   time.Duration `yaml:"timeout"`
	LinkTTL   time.Duration `yaml:"link_ttl"`
	SearchTTL time.Duration `yaml:"search_ttl"`
	StatsTTL  time.Duration `yaml:"stats_ttl"`
	Capacity  int           `yaml:"capacity"`
	NumShards int           `yaml:"num_shards"`
}

var defaultCache = Cache{
	Backend:   CacheBackendRedis,
	Timeout:   100 * time.Millisecond,
	LinkTTL:   time.Hour,
	SearchTTL: 10 * time.Minute,
	StatsTTL:  5 * time.Minute,
	Capacity:  10000,
	NumShards: 64,
}

type ShortCode struct {
	Length     int `yaml:"length"`
	MaxRetries int `yaml:"max_retries"`
}

var defaultShortCode = ShortCode{
	Length:     6,
	MaxRetries: 10,
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

var defaultAuth = Auth{
	TokenTTL:   30 * time.Minute,
	BcryptCost: 10,
}

type Log struct {
	Level   string `yaml:"level"`
	JSON    bool   `yaml:"json"`
	Concise bool   `yaml:"concise"`
}

var defaultLog = Log{
	Level:   "info",
	Concise: true,
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory, CacheBackendNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCacheBackend, c.Cache.Backend)
	}

	if c.ShortCode.Length < 1 || c.ShortCode.Length > shortcode.MaxLength {
		return fmt.Errorf("%w: length must be between 1 and %d, got %d",
			ErrInvalidShortCode, shortcode.MaxLength, c.ShortCode.Length)
	}
	if c.ShortCode.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be positive, got %d",
			ErrInvalidShortCode, c.ShortCode.MaxRetries)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
	cfg.Cache = defaultCache
	cfg.ShortCode = defaultShortCode
	cfg.Auth = defaultAuth
	cfg.Log = defaultLog
}
