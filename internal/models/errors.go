package models

import "errors"

// ErrNotFound covers both "does not exist" and "exists but belongs to another
// user" — callers must not be able to tell the two apart.
var ErrNotFound = errors.New("notification not found")

// ErrValidation marks rejected input: empty or oversized bulk id lists,
// missing required creation fields, malformed ids.
var ErrValidation = errors.New("invalid request")
