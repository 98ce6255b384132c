// Package config loads catalog settings from defaults, an optional config
// file, a .env file and CATALOG_* environment variables, in rising order of
// precedence. Command-line flags bound to the same keys win over all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"productcatalog/store"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CATALOG_STORE_KIND.
const EnvPrefix = "CATALOG"

type Config struct {
	Env    string       `mapstructure:"env" validate:"oneof=development production"`
	Store  StoreConfig  `mapstructure:"store"`
	Remote RemoteConfig `mapstructure:"remote"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Query  QueryConfig  `mapstructure:"query"`
}

type StoreConfig struct {
	Kind          string        `mapstructure:"kind" validate:"oneof=memory mem file redis sqlite"`
	Key           string        `mapstructure:"key" validate:"required"`
	Dir           string        `mapstructure:"dir" validate:"required_if=Kind file"`
	DSN           string        `mapstructure:"dsn" validate:"required_if=Kind sqlite"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Kind redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"min=0"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"min=0"`
	Quota         int           `mapstructure:"quota" validate:"min=0"`
}

// RemoteConfig points at the products API. An empty BaseURL disables the
// remote tier and the static seed is used after the durable store.
type RemoteConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"min=0"`
	Retries       uint64        `mapstructure:"retries" validate:"max=10"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"min=0"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
}

type QueryConfig struct {
	PageSize       int           `mapstructure:"page_size" validate:"min=1,max=50"`
	SearchDelay    time.Duration `mapstructure:"search_delay" validate:"min=0"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout" validate:"min=0"`
}

var validate = validator.New()

// SetDefaults registers every key so environment variables can override
// keys that appear in no config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("store.kind", "file")
	v.SetDefault("store.key", store.DefaultProductsKey)
	v.SetDefault("store.dir", "data")
	v.SetDefault("store.dsn", "data/catalog.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "catalog:")
	v.SetDefault("store.timeout", 3*time.Second)
	v.SetDefault("store.quota", 0)

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("remote.retries", 2)
	v.SetDefault("remote.retry_interval", 200*time.Millisecond)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("query.page_size", 12)
	v.SetDefault("query.search_delay", 300*time.Millisecond)
	v.SetDefault("query.persist_timeout", 5*time.Second)
}

// Load reads configuration into a Config. configFile and envFile are
// optional; a missing envFile is ignored, a missing configFile is not.
func Load(v *viper.Viper, configFile, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with nothing but defaults applied.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate checks every field constraint and reports the first few
// violations by key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// StoreOptions maps the store section onto store.Options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Dir:           c.Store.Dir,
		DSN:           c.Store.DSN,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisPrefix:   c.Store.RedisPrefix,
		Timeout:       c.Store.Timeout,
		Quota:         c.Store.Quota,
	}
}

// String renders the config for logs with the redis password masked.
func (c Config) String() string {
	pw := "<empty>"
	if c.Store.RedisPassword != "" {
		pw = "****"
	}
	return fmt.Sprintf("env=%s store.kind=%s store.key=%s store.redis_password=%s remote.base_url=%q server.addr=%s log.level=%s query.page_size=%d",
		c.Env, c.Store.Kind, c.Store.Key, pw, c.Remote.BaseURL, c.Server.Addr, c.Log.Level, c.Query.PageSize)
}
