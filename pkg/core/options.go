package core

import (
	"runtime"

	"github.com/oneconcern/pkgr/pkg/fingerprint"
	"github.com/oneconcern/pkgr/pkg/storage/httpfs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option sets options for a repository
type Option func(*Settings)

// Settings defines various settings for repositories
type Settings struct {
	fs                  afero.Fs
	sourceFs            afero.Fs
	l                   *zap.Logger
	fetcher             *httpfs.Fetcher
	cacheDir            string
	concurrentDownloads int
	verifier            *fingerprint.Maker
}

var defaultConcurrentDownloads = 2 * runtime.NumCPU()

// WithFs sets the file system holding the repository and its cache. It defaults to the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(s *Settings) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithSourceFs sets the file system holding local sources and authored packages.
// It defaults to the OS file system.
func WithSourceFs(fs afero.Fs) Option {
	return func(s *Settings) {
		if fs != nil {
			s.sourceFs = fs
		}
	}
}

// Logger sets a logger. It defaults to a no-op logger.
func Logger(l *zap.Logger) Option {
	return func(s *Settings) {
		if l != nil {
			s.l = l
		}
	}
}

// WithFetcher sets the http fetcher used by remote sources
func WithFetcher(f *httpfs.Fetcher) Option {
	return func(s *Settings) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// CacheDir sets the cache directory of a new repository. It is ignored when opening a repository,
// which uses its configured cache_dir.
func CacheDir(dir string) Option {
	return func(s *Settings) {
		s.cacheDir = dir
	}
}

// ConcurrentDownloads sets the max level of concurrency to fetch the files of a package.
// It defaults to 2 x #cpus.
func ConcurrentDownloads(n int) Option {
	return func(s *Settings) {
		if n <= 0 {
			s.concurrentDownloads = defaultConcurrentDownloads
			return
		}
		s.concurrentDownloads = n
	}
}

func defaultSettings(opts []Option) Settings {
	s := Settings{
		fs:                  afero.NewOsFs(),
		sourceFs:            afero.NewOsFs(),
		l:                   zap.NewNop(),
		concurrentDownloads: defaultConcurrentDownloads,
	}
	for _, apply := range opts {
		apply(&s)
	}
	if s.fetcher == nil {
		s.fetcher = httpfs.NewFetcher(httpfs.WithLogger(s.l))
	}
	s.verifier = fingerprint.New(fingerprint.NumberOfWorkers(s.concurrentDownloads))
	return s
}
