package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed covers unknown identities, wrong secrets and missing privilege alike.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("not found")
	ErrDuplicateIdentity    = errors.New("duplicate identity")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvalidRequest       = errors.New("invalid request")
)

// storageErr wraps a collaborator failure so callers can match ErrStorageUnavailable.
// Sentinels the storage layer already speaks are passed through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateIdentity) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
