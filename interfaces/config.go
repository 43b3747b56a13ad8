// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

// DatabaseTypeMongoDB identifies the only backend this module speaks to.
const DatabaseTypeMongoDB = "mongodb"

// RepositoryConfig represents the configuration for context creation
type RepositoryConfig struct {
	DatabaseType     string
	ConnectionString string
	DatabaseName     string

	// MongoDB specific
	MongoConfig *MongoDBConfig
}

// MongoDBConfig represents MongoDB specific configuration. When
// ConnectionString is empty the factory assembles a URI from these fields.
type MongoDBConfig struct {
	Host                   string
	Port                   int
	Username               string
	Password               string
	AuthDatabase           string
	ReplicaSet             string
	SSL                    bool
	ConnectTimeout         int
	SocketTimeout          int
	MaxPoolSize            int
	MinPoolSize            int
	MaxIdleTime            int
	ServerSelectionTimeout int
}
