package ratelimit

import "errors"

var (
	// ErrNoPolicy indicates no policy row exists yet.
	ErrNoPolicy = errors.New("no rate limit policy configured")

	// ErrRecordNotFound indicates no attempt record exists for the pair.
	ErrRecordNotFound = errors.New("rate limit record not found")
)
