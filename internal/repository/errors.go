// Package repository defines sentinel error values reused across
// repositories.  Handlers translate them into stable HTTP error codes:
// ErrNotFound becomes a 404, ErrDuplicate a 409 on create endpoints.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness rule,
// such as creating an authorized user with existing initials.
var ErrDuplicate = errors.New("duplicate")
