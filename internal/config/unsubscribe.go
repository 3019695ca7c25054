package config

import (
	"fmt"
	"net/url"
	"time"
)

const defaultUnsubscribeExpirationHours = 24 * 30

// UnsubscribeConfig holds the signing settings for one-click unsubscribe links.
// Links are only rendered when BaseURL is set.
type UnsubscribeConfig struct {
	Secret          string `json:"secret,omitempty"`
	BaseURL         string `json:"base_url,omitempty"`
	ExpirationHours int    `json:"expiration_hours,omitempty"`
}

// Enabled reports whether digests should carry unsubscribe links.
func (c UnsubscribeConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Expiration returns the token lifetime.
func (c UnsubscribeConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// normalize validates the configuration.
func (c *UnsubscribeConfig) normalize() error {
	if !c.Enabled() {
		return nil
	}
	if c.Secret == "" {
		return &ConfigError{Field: "unsubscribe.secret", Message: "is required when unsubscribe.base_url is set"}
	}
	if c.ExpirationHours < 1 {
		return &ConfigError{Field: "unsubscribe.expiration_hours", Message: fmt.Sprintf("must be at least 1 hour, got: %d", c.ExpirationHours)}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "unsubscribe.base_url", Message: fmt.Sprintf("must be an absolute URL, got: %s", c.BaseURL)}
	}
	return nil
}
