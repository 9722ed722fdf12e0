package domain

import "errors"

// ErrNotFound is returned by every collaborator implementation (database,
// HTTP client) when an identity, conversation or record does not exist.
var ErrNotFound = errors.New("not found")
