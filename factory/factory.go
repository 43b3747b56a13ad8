// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package factory builds database contexts from configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/qolzam/telar-db/config"
	"github.com/qolzam/telar-db/interfaces"
	"github.com/qolzam/telar-db/mongodb"
)

// ContextFactory creates database contexts based on configuration.
type ContextFactory struct {
	config *interfaces.RepositoryConfig
}

// NewContextFactory creates a factory for the given configuration.
func NewContextFactory(cfg *interfaces.RepositoryConfig) *ContextFactory {
	return &ContextFactory{config: cfg}
}

// NewContextFactoryFromEnv creates a factory from the process environment,
// merging optional .env files first.
func NewContextFactoryFromEnv(files ...string) (*ContextFactory, error) {
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	return &ContextFactory{config: cfg.RepositoryConfig()}, nil
}

// ValidateConfig checks the configuration and fills defaulted fields.
func (f *ContextFactory) ValidateConfig() error {
	if f.config == nil {
		return fmt.Errorf("repository configuration is nil")
	}
	if f.config.DatabaseType != "" && f.config.DatabaseType != interfaces.DatabaseTypeMongoDB {
		return fmt.Errorf("unsupported database type: %s", f.config.DatabaseType)
	}
	if f.config.ConnectionString != "" {
		return nil
	}

	mongoConfig := f.config.MongoConfig
	if mongoConfig == nil {
		return fmt.Errorf("MongoDB configuration is required when no connection string is given")
	}
	if mongoConfig.Host == "" {
		return fmt.Errorf("MongoDB host is required")
	}
	if mongoConfig.Port <= 0 {
		mongoConfig.Port = 27017
	}
	if mongoConfig.MaxPoolSize <= 0 {
		mongoConfig.MaxPoolSize = 100
	}
	if mongoConfig.MinPoolSize <= 0 {
		mongoConfig.MinPoolSize = 10
	}
	if mongoConfig.ConnectTimeout <= 0 {
		mongoConfig.ConnectTimeout = 10
	}
	return nil
}

// CreateContext validates the configuration, resolves the connection string
// and connects a database context. extra, when non-nil, contributes hooks,
// logger, event handler and serializer registrations; its connection fields
// are overridden by the factory configuration.
func (f *ContextFactory) CreateContext(ctx context.Context, extra *mongodb.ContextConfig) (*mongodb.Context, error) {
	if err := f.ValidateConfig(); err != nil {
		return nil, err
	}

	contextConfig := mongodb.ContextConfig{}
	if extra != nil {
		contextConfig = *extra
	}
	contextConfig.ConnectionString = f.config.ConnectionString
	if contextConfig.ConnectionString == "" {
		contextConfig.ConnectionString = BuildConnectionURI(f.config.MongoConfig, f.config.DatabaseName)
	}
	if f.config.DatabaseName != "" {
		contextConfig.DatabaseName = f.config.DatabaseName
	}
	contextConfig.MongoConfig = f.config.MongoConfig

	c, err := mongodb.NewContext(ctx, &contextConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB context: %w", err)
	}
	return c, nil
}

// BuildConnectionURI builds a MongoDB connection URI from config. The
// database name, when given, lands in the URI path so the context can parse
// it back out.
func BuildConnectionURI(cfg *interfaces.MongoDBConfig, databaseName string) string {
	uri := "mongodb://"

	if cfg.Username != "" && cfg.Password != "" {
		uri += fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	uri += fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	if databaseName != "" {
		uri += "/" + databaseName
	}

	sep := "?"
	if cfg.AuthDatabase != "" {
		uri += fmt.Sprintf("%sauthSource=%s", sep, cfg.AuthDatabase)
		sep = "&"
	}
	if cfg.ReplicaSet != "" {
		uri += fmt.Sprintf("%sreplicaSet=%s", sep, cfg.ReplicaSet)
		sep = "&"
	}
	if cfg.SSL {
		uri += sep + "ssl=true"
	}
	return uri
}
