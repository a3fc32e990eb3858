package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrFreeLimitReached   = errors.New("free search limit reached")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrLockNotAcquired    = errors.New("could not acquire lock")
)
