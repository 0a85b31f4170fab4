// Copyright © 2018 One Concern

// Package httpfs implements a read-only store over a remote package source served over http(s).
//
// Requests are retried with an exponential backoff on transient failures (transport errors,
// 5xx, 429), never on 404. A circuit breaker per host fails fast once a host keeps failing.
package httpfs

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/metrics"
	"github.com/oneconcern/pkgr/pkg/storage/status"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"
	"go.uber.org/zap"
)

// ErrUpstreamDown is returned when the circuit breaker of a host is open
var ErrUpstreamDown = errors.New("upstream source unavailable")

// Fetcher performs http requests on behalf of remote stores.
//
// A single Fetcher is meant to be shared by all the remote sources of a repository.
type Fetcher struct {
	client           *http.Client
	userAgent        string
	maxRetries       int
	baseDelay        time.Duration
	breakerThreshold int64
	l                *zap.Logger

	resolver    *dnscache.Resolver
	refreshed   time.Time
	refreshLock sync.Mutex

	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewFetcher creates a Fetcher with a dns-caching http client
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:        defaultUserAgent,
		maxRetries:       defaultMaxRetries,
		baseDelay:        defaultBaseDelay,
		breakerThreshold: defaultBreakerThreshold,
		l:                zap.NewNop(),
		resolver:         &dnscache.Resolver{},
		refreshed:        time.Now(),
		breakers:         make(map[string]*circuit.Breaker),
	}
	f.client = f.defaultClient()

	for _, apply := range opts {
		apply(f)
	}
	return f
}

func (f *Fetcher) defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := f.lookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				var lastErr error
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
					lastErr = err
				}
				if lastErr == nil {
					lastErr = fmt.Errorf("no address resolved for %s", host)
				}
				return nil, lastErr
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// lookupHost resolves through the dns cache, refreshing stale entries lazily
func (f *Fetcher) lookupHost(ctx context.Context, host string) ([]string, error) {
	f.refreshLock.Lock()
	if time.Since(f.refreshed) > dnsRefreshInterval {
		f.resolver.Refresh(true)
		f.refreshed = time.Now()
	}
	f.refreshLock.Unlock()

	return f.resolver.LookupHost(ctx, host)
}

// breaker returns or creates the circuit breaker of a host
func (f *Fetcher) breaker(host string) *circuit.Breaker {
	f.mu.RLock()
	breaker, exists := f.breakers[host]
	f.mu.RUnlock()
	if exists {
		return breaker
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if breaker, exists := f.breakers[host]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(f.breakerThreshold),
	})
	f.breakers[host] = breaker
	return breaker
}

// BreakerStates reports "open" or "closed" for every host contacted so far
func (f *Fetcher) BreakerStates() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	states := make(map[string]string, len(f.breakers))
	for host, breaker := range f.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// Do performs a request with retries and circuit breaking.
//
// On success, the caller must close the response body. A 404 yields status.ErrNotFound;
// other failures yield a *status.NetworkError.
func (f *Fetcher) Do(ctx context.Context, method string, target *url.URL) (*http.Response, error) {
	host := target.Host
	breaker := f.breaker(host)

	retries := backoff.WithMaxRetries(f.newBackOff(), uint64(f.maxRetries))
	retries.Reset()

	for {
		if !breaker.Ready() {
			return nil, &status.NetworkError{URL: target.String(), Err: fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)}
		}

		var (
			resp *http.Response
			err  error
		)
		_ = breaker.Call(func() error {
			resp, err = f.do(ctx, method, target)
			if errors.Is(err, status.ErrNotFound) {
				// the host answered: this is not a failure of the host
				return nil
			}
			return err
		}, 0)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !status.IsTransient(err) {
			return nil, err
		}

		delay := retries.NextBackOff()
		if delay == backoff.Stop {
			return nil, err
		}
		metrics.FetchRetry(host)
		f.l.Debug("retrying remote fetch",
			zap.String("url", target.String()),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Retry runs an operation reading a remote object until it succeeds, fails with a non-transient
// error or runs out of retries.
//
// It covers failures that Do cannot see, like a connection reset while the body is streamed:
// the operation must start over from a new request on each attempt.
func (f *Fetcher) Retry(ctx context.Context, host string, op func() error) error {
	retries := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), uint64(f.maxRetries)), ctx)

	err := backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !status.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, retries, func(err error, delay time.Duration) {
		metrics.FetchRetry(host)
		f.l.Debug("retrying remote read",
			zap.String("host", host),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (f *Fetcher) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.baseDelay
	b.RandomizationFactor = 0.1
	b.Multiplier = 2.0
	b.MaxInterval = defaultMaxDelay
	b.MaxElapsedTime = 0
	return b
}

func (f *Fetcher) do(ctx context.Context, method string, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, &status.NetworkError{URL: target.String(), Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &status.NetworkError{URL: target.String(), Transient: isTransientTransportError(err), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil

	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return nil, status.ErrNotFound.Wrapf("%s", target.String())

	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		drain(resp)
		return nil, &status.NetworkError{URL: target.String(), Transient: true, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}

	default:
		drain(resp)
		return nil, &status.NetworkError{URL: target.String(), Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

func isTransientTransportError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		var opErr *net.OpError
		return uerr.Timeout() || errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
