// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/qolzam/telar-db/interfaces"
)

// DatabaseNameFromURI extracts the database from the path segment of a
// standard MongoDB URI, e.g. "mongodb://host:27017/mydb?replicaSet=rs0"
// yields "mydb". An empty string means the URI names no database.
func DatabaseNameFromURI(uri string) (string, error) {
	parsed, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", interfaces.NewRepositoryError("invalid connection string: "+err.Error(), "ARGUMENT")
	}
	return parsed.Database, nil
}
