// Copyright © 2018 One Concern

package source

import (
	"github.com/oneconcern/pkgr/pkg/storage/httpfs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option for sources
type Option func(*settings)

type settings struct {
	fetcher *httpfs.Fetcher
	fs      afero.Fs
	l       *zap.Logger
}

// WithFetcher shares an http fetcher between remote sources
func WithFetcher(f *httpfs.Fetcher) Option {
	return func(s *settings) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithFs sets the file system hosting local sources. It defaults to the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(s *settings) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.l = l
		}
	}
}

func defaultSettings(opts []Option) settings {
	s := settings{
		fs: afero.NewOsFs(),
		l:  zap.NewNop(),
	}
	for _, apply := range opts {
		apply(&s)
	}
	if s.fetcher == nil {
		s.fetcher = httpfs.NewFetcher(httpfs.WithLogger(s.l))
	}
	return s
}
