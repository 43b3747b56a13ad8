// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config loads the library configuration from the environment. A
// .env file, when present, is merged into the process environment first so
// local development mirrors the deployed configuration surface.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/qolzam/telar-db/interfaces"
)

// Config is the environment-driven configuration for a database context.
// ConnectionString wins when set; otherwise the factory assembles a URI
// from the host fields.
type Config struct {
	ConnectionString string `env:"MONGODB_URI"`
	Database         string `env:"MONGODB_DATABASE"`

	Host         string `env:"MONGODB_HOST" envDefault:"localhost"`
	Port         int    `env:"MONGODB_PORT" envDefault:"27017"`
	Username     string `env:"MONGODB_USERNAME"`
	Password     string `env:"MONGODB_PASSWORD"`
	AuthDatabase string `env:"MONGODB_AUTH_DATABASE"`
	ReplicaSet   string `env:"MONGODB_REPLICA_SET"`
	SSL          bool   `env:"MONGODB_SSL"`

	MaxPoolSize            int `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize            int `env:"MONGODB_MIN_POOL_SIZE" envDefault:"10"`
	ConnectTimeout         int `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10"`
	SocketTimeout          int `env:"MONGODB_SOCKET_TIMEOUT"`
	MaxIdleTime            int `env:"MONGODB_MAX_IDLE_TIME" envDefault:"300"`
	ServerSelectionTimeout int `env:"MONGODB_SERVER_SELECTION_TIMEOUT"`

	ForceTransaction     bool `env:"MONGODB_FORCE_TRANSACTION"`
	ThrowIndexExceptions bool `env:"MONGODB_THROW_INDEX_EXCEPTIONS"`
}

// Load reads optional .env files and parses the environment. Missing .env
// files are not an error; the process environment alone is a valid source.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// RepositoryConfig converts the environment form into the programmatic
// configuration the factory consumes.
func (c *Config) RepositoryConfig() *interfaces.RepositoryConfig {
	return &interfaces.RepositoryConfig{
		DatabaseType:     interfaces.DatabaseTypeMongoDB,
		ConnectionString: c.ConnectionString,
		DatabaseName:     c.Database,
		MongoConfig: &interfaces.MongoDBConfig{
			Host:                   c.Host,
			Port:                   c.Port,
			Username:               c.Username,
			Password:               c.Password,
			AuthDatabase:           c.AuthDatabase,
			ReplicaSet:             c.ReplicaSet,
			SSL:                    c.SSL,
			ConnectTimeout:         c.ConnectTimeout,
			SocketTimeout:          c.SocketTimeout,
			MaxPoolSize:            c.MaxPoolSize,
			MinPoolSize:            c.MinPoolSize,
			MaxIdleTime:            c.MaxIdleTime,
			ServerSelectionTimeout: c.ServerSelectionTimeout,
		},
	}
}
