package coinbase

import (
	"fmt"
	"strings"
)

// ConfigError reports credential material that resolved to nothing. It is a
// configuration problem, not a signing problem: the process keeps running
// and the triggering request fails.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing environment variables: " + strings.Join(e.Missing, ", ")
}

// AuthError reports key material that resolved but could not produce a
// signature (bad PEM, wrong key type or curve).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("coinbase: signing failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError reports a non-success status from an exchange call, carrying
// the status and body for logging and notification.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("coinbase: unexpected status %d: %s", e.Status, body)
}
