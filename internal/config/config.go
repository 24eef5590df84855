// Package config loads the settings of the directory client and of the reference back end.
//
// Values come, by increasing precedence, from built-in defaults, an optional YAML file, a .env
// file in the working directory and DIRECTORY_ prefixed environment variables, e.g.
// DIRECTORY_GATEWAY_REST_BASE.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DIRECTORY"

// Documented defaults.
const (
	DefaultRESTBase        = "http://localhost:8080/api/personnes"
	DefaultGraphQLEndpoint = "http://localhost:8080/graphql"
	DefaultTimeout         = 10 * time.Second
	DefaultMySQLDSN        = "root:@tcp(localhost:3306)/personnes?parseTime=true"
)

// Config is the complete configuration.
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Logging LoggingConfig `mapstructure:"logging"`
	Backend BackendConfig `mapstructure:"backend"`
}

// GatewayConfig locates the two backend endpoints.
type GatewayConfig struct {
	RESTBase        string        `mapstructure:"rest_base"`
	GraphQLEndpoint string        `mapstructure:"graphql_endpoint"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig configures the reference back end. Store is "memory" or "mysql".
type BackendConfig struct {
	Port     int    `mapstructure:"port"`
	Store    string `mapstructure:"store"`
	MySQLDSN string `mapstructure:"mysql_dsn"`
}

// Load reads the configuration. If path is empty, a file named directory.yaml is looked up in
// the working directory and in ./configs; a missing file is not an error.
func Load(path string) (*Config, error) {
	loadEnvFile(".env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("directory")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if err := absoluteURL("gateway.rest_base", c.Gateway.RESTBase); err != nil {
		return err
	}
	if err := absoluteURL("gateway.graphql_endpoint", c.Gateway.GraphQLEndpoint); err != nil {
		return err
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout must not be negative")
	}
	if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port %d is out of range", c.Backend.Port)
	}
	switch c.Backend.Store {
	case "memory", "mysql":
	default:
		return fmt.Errorf("backend.store must be memory or mysql, got %q", c.Backend.Store)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.rest_base", DefaultRESTBase)
	v.SetDefault("gateway.graphql_endpoint", DefaultGraphQLEndpoint)
	v.SetDefault("gateway.timeout", DefaultTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("backend.port", 8080)
	v.SetDefault("backend.store", "memory")
	v.SetDefault("backend.mysql_dsn", DefaultMySQLDSN)
}

// loadEnvFile exports the variables of a .env file that are not set yet.
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

func absoluteURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}
