// Copyright (c) 2025 BVK Chaitanya

package goldprice

import (
	"net/url"
	"time"
)

var (
	// PublicURL is the no-auth gold-api.com endpoint.
	PublicURL = url.URL{
		Scheme: "https",
		Host:   "api.gold-api.com",
		Path:   "/price/XAU",
	}

	// KeyedURL is the goldapi.io endpoint which requires an access token.
	KeyedURL = url.URL{
		Scheme: "https",
		Host:   "www.goldapi.io",
		Path:   "/api/XAU/USD",
	}
)

type Options struct {
	// APIKey if non-empty selects the keyed endpoint.
	APIKey string

	// URL overrides the endpoint selected by the APIKey.
	URL string

	// Timeout is the per-call http timeout.
	Timeout time.Duration

	// MaxRequestsPerMinute limits the outbound requests.
	MaxRequestsPerMinute int
}

func (v *Options) setDefaults() {
	if v.URL == "" {
		if v.APIKey == "" {
			v.URL = PublicURL.String()
		} else {
			v.URL = KeyedURL.String()
		}
	}
	if v.Timeout == 0 {
		v.Timeout = 10 * time.Second
	}
	if v.MaxRequestsPerMinute == 0 {
		v.MaxRequestsPerMinute = 30
	}
}

// Check validates the options.
func (v *Options) Check() error {
	if _, err := url.Parse(v.URL); err != nil {
		return err
	}
	return nil
}
