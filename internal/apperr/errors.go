// Package apperr defines the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidScene  = errors.New("invalid scene")
	ErrInvalidInput  = errors.New("invalid input")

	// Graph model validation. All are raised at ingestion time, before a
	// simulation starts.
	ErrDuplicateNode = errors.New("duplicate node")
	ErrMalformedEdge = errors.New("malformed edge")
	ErrEmptyGraph    = errors.New("empty graph")
)
