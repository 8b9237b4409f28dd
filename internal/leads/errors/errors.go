package errors

import "errors"

var (
	ErrNotFound  = errors.New("lead not found")
	ErrInvalidID = errors.New("invalid lead ID")
)
