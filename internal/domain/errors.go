// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates that input data failed validation.
var ErrValidation = errors.New("validation error")

// ErrUnauthorized indicates the caller is not permitted to perform the operation.
var ErrUnauthorized = errors.New("unauthorized")
