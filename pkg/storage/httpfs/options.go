// Copyright © 2018 One Concern

package httpfs

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxRetries       = 3
	defaultBaseDelay        = 500 * time.Millisecond
	defaultMaxDelay         = 10 * time.Second
	defaultBreakerThreshold = 5
	defaultUserAgent        = "pkgr/1.0"
	dnsRefreshInterval      = 5 * time.Minute
)

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient sets a custom http client. It replaces the default dns-caching client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets the maximum number of retries on transient failures. It defaults to 3.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithBaseDelay sets the initial delay of the exponential backoff between retries
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.baseDelay = d
		}
	}
}

// WithBreakerThreshold sets the number of consecutive failures tripping the circuit breaker of a host
func WithBreakerThreshold(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.breakerThreshold = n
		}
	}
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.l = l
		}
	}
}
