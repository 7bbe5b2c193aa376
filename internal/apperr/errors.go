// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("entry not found")
	ErrAlreadyLogged = errors.New("entry already logged")
	ErrInvalidInput  = errors.New("invalid input")
)
