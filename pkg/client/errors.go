package client

import (
	"errors"
)

// Common errors returned by the client.
var (
	// ErrNoAppToken is returned when the client is constructed without
	// an app token. Every batch is sent under one, so there is no
	// usable default.
	ErrNoAppToken = errors.New("app token is required")

	// ErrRedisRequired is returned when conditional caching is enabled
	// without a Redis client to back it.
	ErrRedisRequired = errors.New("redis client is required when etags are enabled")
)
