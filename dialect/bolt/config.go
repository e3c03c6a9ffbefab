package bolt

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a Bolt connection.
//
//	uri: neo4j://localhost:7687
//	username: neo4j
//	password: secret
//	database: social
type Config struct {
	URI                   string        `yaml:"uri"`
	Username              string        `yaml:"username"`
	Password              string        `yaml:"password"`
	Database              string        `yaml:"database"`
	MaxConnectionPoolSize int           `yaml:"max_connection_pool_size"`
	AcquisitionTimeout    time.Duration `yaml:"acquisition_timeout"`
}

// LoadConfig reads a YAML configuration file. The password may be left out
// of the file and given in the NEO4J_PASSWORD environment variable.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dialect/bolt: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("dialect/bolt: parse config: %w", err)
	}
	if c.URI == "" {
		return nil, fmt.Errorf("dialect/bolt: config: uri is required")
	}
	if c.Password == "" {
		c.Password = os.Getenv("NEO4J_PASSWORD")
	}
	return &c, nil
}

// configure applies the pool settings to the neo4j driver configuration.
func (c *Config) configure(nc *config.Config) {
	if c.MaxConnectionPoolSize > 0 {
		nc.MaxConnectionPoolSize = c.MaxConnectionPoolSize
	}
	if c.AcquisitionTimeout > 0 {
		nc.ConnectionAcquisitionTimeout = c.AcquisitionTimeout
	}
}

// Open connects to the configured server.
func (c *Config) Open(ctx context.Context) (*Driver, error) {
	var opts []Option
	if c.Database != "" {
		opts = append(opts, WithDatabase(c.Database))
	}
	return open(ctx, c.URI, c.Username, c.Password, c.configure, opts...)
}
