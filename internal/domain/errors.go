package domain

import "errors"

// ErrProfileNotFound is returned by any profile lookup that misses. It lives
// here because both the intake and notification sides load profiles.
var ErrProfileNotFound = errors.New("profile not found")
