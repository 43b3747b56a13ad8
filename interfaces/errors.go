// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"time"
)

// Common errors
var (
	ErrNoDocuments         = NewRepositoryError("no documents found", "NOT_FOUND")
	ErrDuplicateKey        = NewRepositoryError("duplicate key error", "DUPLICATE_KEY")
	ErrInvalidFilter       = NewRepositoryError("invalid filter", "INVALID_FILTER")
	ErrInvalidArgument     = NewRepositoryError("invalid argument", "ARGUMENT")
	ErrConnectionFailed    = NewRepositoryError("database connection failed", "CONNECTION_FAILED")
	ErrTransactionState    = NewRepositoryError("illegal transaction state transition", "TRANSACTION_STATE")
	ErrTransactionInactive = NewRepositoryError("transaction is not active", "TRANSACTION_INACTIVE")
	ErrNestedTransaction   = NewRepositoryError("nested transactions not supported", "NESTED_TRANSACTION")
	ErrHookNil             = NewRepositoryError("pre-write hook returned nil", "HOOK_NIL")
	ErrQueryIncomplete     = NewRepositoryError("query expression has an unbound parameter", "QUERY_INCOMPLETE")
	ErrIndexBuild          = NewRepositoryError("index creation failed", "INDEX_BUILD")
	ErrUpdateEmpty         = NewRepositoryError("update document has no operators", "UPDATE_EMPTY")
)

// NotAcknowledged is the sentinel returned by write operations when the
// server did not acknowledge the write. It is a return value, never an error.
const NotAcknowledged int64 = -1

// RepositoryError represents a repository specific error
type RepositoryError struct {
	Message string
	Code    string
	Time    time.Time
}

func (e *RepositoryError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code. Sentinels above are
// created once, so errors.Is works across wrapped chains and re-created
// instances alike.
func (e *RepositoryError) Is(target error) bool {
	t, ok := target.(*RepositoryError)
	return ok && t.Code == e.Code
}

// NewRepositoryError creates a new repository error
func NewRepositoryError(message, code string) *RepositoryError {
	return &RepositoryError{
		Message: message,
		Code:    code,
		Time:    time.Now(),
	}
}
