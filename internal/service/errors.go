// Package service orchestrates the application's operations: authentication,
// request and budget lifecycles, role and group administration, and the
// analytics rollup. Every gated operation resolves the caller's access first
// and fails closed.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotFound           = errors.New("not found")
	ErrStaleUpdate        = errors.New("record was modified by someone else")
	ErrReimbursedLocked   = errors.New("reimbursed requests can no longer change status")
)

// ValidationError rejects a request before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a duplicate-name create.
type ConflictError struct {
	Resource string
	Name     string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Name)
}

// ReferentialIntegrityError blocks a delete that would strand dependent rows.
// The message carries the dependent count so the caller knows the size of the
// obstacle.
type ReferentialIntegrityError struct {
	Resource  string
	Dependent string
	Count     int
}

func (e ReferentialIntegrityError) Error() string {
	plural := ""
	if e.Count != 1 {
		plural = "s"
	}
	return fmt.Sprintf("cannot delete %s: %d %s%s currently reference it", e.Resource, e.Count, e.Dependent, plural)
}
