package age

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of an AGE connection.
//
//	dsn: postgres://app@localhost:5432/graphs?sslmode=disable
//	graph: social
//	load: true
//	search_path: ag_catalog, "$user", public
//	max_open_conns: 10
type Config struct {
	DSN             string        `yaml:"dsn"`
	Graph           string        `yaml:"graph"`
	Load            bool          `yaml:"load"`
	SearchPath      string        `yaml:"search_path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dialect/age: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("dialect/age: parse config: %w", err)
	}
	if c.DSN == "" {
		return nil, fmt.Errorf("dialect/age: config: dsn is required")
	}
	if c.Graph == "" {
		return nil, fmt.Errorf("dialect/age: config: graph is required")
	}
	return &c, nil
}

// Options returns the driver options the configuration describes.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Load {
		opts = append(opts, WithLoad())
	}
	if c.SearchPath != "" {
		opts = append(opts, WithSearchPath(c.SearchPath))
	}
	return opts
}

// Open opens a Driver from the configuration.
func (c *Config) Open() (*Driver, error) {
	drv, err := Open(c.Graph, c.DSN, c.Options()...)
	if err != nil {
		return nil, err
	}
	db := drv.DB()
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	return drv, nil
}
