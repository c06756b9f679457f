package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnknownStyle    = errors.New("unknown style")
	ErrNoImageData     = errors.New("no image data in response")
	ErrProviderFailure = errors.New("provider failure")
)
