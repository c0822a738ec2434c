// Package openremote is the client for the building-automation scheduler
// that switches room devices around reservations.
package openremote

import "time"

// Config holds the configuration for scheduler API access.
type Config struct {
	// BaseURL is the scheduler API base URL, e.g. https://or.example.com/api
	BaseURL string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Timeout for API requests
	Timeout time.Duration
}

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Enabled reports whether a base URL is configured.
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}
