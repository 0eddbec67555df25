package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the feed pipeline. Callers classify with errors.Is.
var (
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrKeyExtraction     = errors.New("key extraction failed")
	ErrUpstreamTransport = errors.New("request to your mastodon instance failed")
	ErrUpstreamTooLarge  = errors.New("response from your mastodon instance is too large")
	ErrUpstreamMalformed = errors.New("response from your mastodon instance is malformed")
	ErrTimestampInvalid  = errors.New("parsing a datetime from mastodon failed")
)

// UpstreamStatusError is returned when the upstream answers with a non-2xx status.
type UpstreamStatusError struct {
	Status int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrUpstreamTransport, e.Status)
}

// Is makes a status error match ErrUpstreamTransport.
func (e *UpstreamStatusError) Is(target error) bool {
	return target == ErrUpstreamTransport
}
