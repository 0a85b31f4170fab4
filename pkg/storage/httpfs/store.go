// Copyright © 2018 One Concern

package httpfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/status"
)

// New read-only store rooted at a base url, which must end with a slash
func New(fetcher *Fetcher, baseURL string) (storage.Store, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, status.ErrInvalidKey.Wrapf("invalid base url %q: %v", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, status.ErrNotSupported.Wrapf("unsupported scheme in %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		return nil, status.ErrInvalidKey.Wrapf("base url %q must end with a slash", baseURL)
	}
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	return &httpFS{
		fetcher: fetcher,
		base:    base,
	}, nil
}

type httpFS struct {
	fetcher *Fetcher
	base    *url.URL
}

func (h *httpFS) resolve(key string) (*url.URL, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if key == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, status.ErrInvalidKey.Wrapf("key %q", key)
	}
	return h.base.ResolveReference(&url.URL{Path: clean}), nil
}

func (h *httpFS) Has(ctx context.Context, key string) (bool, error) {
	target, err := h.resolve(key)
	if err != nil {
		return false, err
	}
	resp, err := h.fetcher.Do(ctx, http.MethodHead, target)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	_ = resp.Body.Close()
	return true, nil
}

func (h *httpFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := h.resolve(key)
	if err != nil {
		return nil, err
	}
	resp, err := h.fetcher.Do(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}
	return &remoteReader{url: target.String(), body: resp.Body}, nil
}

func (h *httpFS) Put(context.Context, string, io.Reader, bool) error {
	return status.ErrNotSupported.Wrapf("%s is read-only", h)
}

func (h *httpFS) Delete(context.Context, string) error {
	return status.ErrNotSupported.Wrapf("%s is read-only", h)
}

func (h *httpFS) Keys(context.Context) ([]string, error) {
	return nil, status.ErrNotSupported.Wrapf("%s may not be listed", h)
}

func (h *httpFS) Clear(context.Context) error {
	return status.ErrNotSupported.Wrapf("%s is read-only", h)
}

func (h *httpFS) String() string {
	return "httpfs@" + h.base.String()
}

// remoteReader reports failures while streaming a body as transient network errors
type remoteReader struct {
	url  string
	body io.ReadCloser
}

func (r *remoteReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if err != nil && err != io.EOF {
		return n, &status.NetworkError{URL: r.url, Transient: true, Err: fmt.Errorf("reading body: %w", err)}
	}
	return n, err
}

func (r *remoteReader) Close() error {
	return r.body.Close()
}
