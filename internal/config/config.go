// Package config resolves repe settings from defaults, an optional repe.yaml,
// .env files, REPE_* environment variables and command-line flags.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFileName = "repe"
	configFileType = "yaml"
	envPrefix      = "REPE"

	// Fixed secret in dev mode so tokens survive restarts
	devJWTSecret = "dev-secret-minimum-32-characters-long"

	minJWTSecretLen = 32
)

// Keys, shared with flag bindings in cmd
const (
	KeyDatabaseURL    = "database_url"
	KeyDev            = "dev"
	KeyJWTSecret      = "jwt_secret"
	KeyAPIHost        = "api.host"
	KeyAPIPort        = "api.port"
	KeyAPIRequireAuth = "api.require_auth"
	KeyWebEnabled     = "web.enabled"
	KeyWebHost        = "web.host"
	KeyWebPort        = "web.port"
	KeyWebDir         = "web.dir"
	KeyPIDPath        = "pid.path"
	KeyPIDLock        = "pid.lock"
	KeyClientAPIURL   = "client.api_url"
	KeyClientDataDir  = "client.data_dir"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrPIDLockWithoutPath = errors.New("pid.lock requires pid.path")
	ErrWeakJWTSecret      = errors.New("jwt_secret must be at least 32 bytes")
	ErrMissingJWTSecret   = errors.New("jwt_secret is required outside dev mode")
)

type Config struct {
	DatabaseURL string       `mapstructure:"database_url"`
	Dev         bool         `mapstructure:"dev"`
	JWTSecret   string       `mapstructure:"jwt_secret"`
	API         APIConfig    `mapstructure:"api"`
	Web         WebConfig    `mapstructure:"web"`
	PID         PIDConfig    `mapstructure:"pid"`
	Client      ClientConfig `mapstructure:"client"`
}

type APIConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	RequireAuth bool   `mapstructure:"require_auth"`
}

type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Dir     string `mapstructure:"dir"`
}

type PIDConfig struct {
	Path string `mapstructure:"path"`
	Lock bool   `mapstructure:"lock"`
}

type ClientConfig struct {
	APIURL  string `mapstructure:"api_url"`
	DataDir string `mapstructure:"data_dir"`
}

// New returns a viper instance carrying defaults and environment bindings.
// Callers bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyDev, false)
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeyAPIHost, "localhost")
	v.SetDefault(KeyAPIPort, 8080)
	v.SetDefault(KeyAPIRequireAuth, false)
	v.SetDefault(KeyWebEnabled, false)
	v.SetDefault(KeyWebHost, "localhost")
	v.SetDefault(KeyWebPort, 9090)
	v.SetDefault(KeyWebDir, "web")
	v.SetDefault(KeyPIDPath, "")
	v.SetDefault(KeyPIDLock, false)
	v.SetDefault(KeyClientAPIURL, "http://localhost:8080")
	v.SetDefault(KeyClientDataDir, defaultDataDir())

	// REPE_API_PORT -> api.port
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional unprefixed name is honoured after the prefixed one
	_ = v.BindEnv(KeyDatabaseURL, envPrefix+"_DATABASE_URL", "DATABASE_URL")

	return v
}

// Load reads .env files and the config file, then decodes the merged settings.
// An explicit configFile must exist; otherwise a missing repe.yaml is not an error.
func Load(v *viper.Viper, configFile string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "repe"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	return &cfg, nil
}

// loadEnvFiles applies .env files without overriding variables already set.
// With no names given, ./.env is used when present.
func loadEnvFiles(names ...string) error {
	if len(names) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		names = []string{".env"}
	}
	if err := godotenv.Load(names...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Validate checks the settings needed to run the server
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if !validPort(c.API.Port) {
		return fmt.Errorf("api.port %d: %w", c.API.Port, ErrInvalidPort)
	}
	if c.Web.Enabled && !validPort(c.Web.Port) {
		return fmt.Errorf("web.port %d: %w", c.Web.Port, ErrInvalidPort)
	}
	if c.PID.Lock && c.PID.Path == "" {
		return ErrPIDLockWithoutPath
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLen {
		return ErrWeakJWTSecret
	}
	return nil
}

// Secret returns the token signing key: the configured secret, the fixed dev
// secret, or a random key valid until restart.
func (c *Config) Secret() ([]byte, error) {
	switch {
	case c.JWTSecret != "":
		return []byte(c.JWTSecret), nil
	case c.Dev:
		log.Printf("Using fixed JWT secret (dev mode)")
		return []byte(devJWTSecret), nil
	}

	secret := make([]byte, minJWTSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	log.Printf("JWT secret generated (tokens valid until restart)")
	return secret, nil
}

// SharedSecret returns a secret other processes can also derive, for issuing tokens offline
func (c *Config) SharedSecret() ([]byte, error) {
	if c.JWTSecret == "" && !c.Dev {
		return nil, ErrMissingJWTSecret
	}
	return c.Secret()
}

func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func (c *Config) WebAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "repe")
	}
	return ".repe"
}
