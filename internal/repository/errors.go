// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios: ErrInsufficientCredits
// maps to HTTP 402, ErrEmailExists to 409, ErrUserNotFound to 404.
package repository

import "errors"

// ErrEmailExists is returned when an insert would violate the unique email
// constraint on users or waitlist rows.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a credit operation targets a user row
// that no longer exists.
var ErrUserNotFound = errors.New("user not found")

// ErrInsufficientCredits is returned by DeductCredit when a non-pro user's
// balance is already zero. Nothing is decremented in that case.
var ErrInsufficientCredits = errors.New("insufficient credits")
