package core

import (
	"os"
	"path/filepath"

	"github.com/oneconcern/pkgr/pkg/config"
	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/source"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Repository is a local package repository: a package store with its ledgers, a global index,
// a configuration with its registry of sources and a cache directory.
//
// Read-only operations never lock the repository. Mutating operations take an advisory lock
// for their whole duration and fail with status.ErrLockContention when it is held elsewhere.
type Repository struct {
	root     string
	settings Settings
	fs       afero.Fs
	config   *config.Config
	store    *packageStore
	l        *zap.Logger

	lock *repoLock
}

// Init creates a new repository at root: the packages directory, a default configuration
// and an empty global index. It fails with status.ErrAlreadyExists when root already holds
// a configuration.
func Init(root string, opts ...Option) (*Repository, error) {
	settings := defaultSettings(opts)
	fs := settings.fs

	cfgPath := filepath.Join(root, model.ConfigFile)
	if _, err := fs.Stat(cfgPath); err == nil {
		return nil, status.ErrAlreadyExists.Wrapf("repository at %s", root)
	}

	cacheDir := settings.cacheDir
	if cacheDir == "" {
		cacheDir = config.DefaultCacheDir()
	}
	if err := config.ValidateCacheDir(root, cacheDir); err != nil {
		return nil, err
	}

	if err := fs.MkdirAll(filepath.Join(root, model.PackagesDir), 0700); err != nil {
		return nil, err
	}
	cfg := config.New(fs, cfgPath, cacheDir)
	if err := cfg.Save(); err != nil {
		return nil, err
	}

	r := newRepository(root, settings, cfg)
	if err := r.saveIndex(model.NewIndex()); err != nil {
		return nil, err
	}
	r.l.Info("repository initialized", zap.String("cache_dir", cacheDir))
	return r, nil
}

// New creates a repository named name under baseDir
func New(name, baseDir string, opts ...Option) (*Repository, error) {
	if err := model.ValidateName("repository name", name); err != nil {
		return nil, status.ErrConfig.Wrap(err)
	}
	return Init(filepath.Join(baseDir, name), opts...)
}

// Open an existing repository
func Open(root string, opts ...Option) (*Repository, error) {
	settings := defaultSettings(opts)
	fs := settings.fs

	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("repository %s", root)
		}
		return nil, err
	}
	if !fi.IsDir() {
		return nil, status.ErrNotFound.Wrapf("repository %s is not a directory", root)
	}

	cfg, err := config.Load(fs, filepath.Join(root, model.ConfigFile))
	if err != nil {
		return nil, err
	}
	return newRepository(root, settings, cfg), nil
}

func newRepository(root string, settings Settings, cfg *config.Config) *Repository {
	return &Repository{
		root:     root,
		settings: settings,
		fs:       settings.fs,
		config:   cfg,
		store:    newPackageStore(settings.fs, root),
		l:        settings.l.With(zap.String("repo", root)),
	}
}

// Root directory of the repository
func (r *Repository) Root() string {
	return r.root
}

// Config of the repository
func (r *Repository) Config() *config.Config {
	return r.config
}

// CacheDir is the configured cache directory
func (r *Repository) CacheDir() string {
	return r.config.CacheDir
}

// Packages lists the ids of installed packages
func (r *Repository) Packages() ([]string, error) {
	return r.store.Packages()
}

// Manifest of an installed version
func (r *Repository) Manifest(id, version string) (*model.Manifest, error) {
	return r.store.ReadManifest(id, version)
}

// HasVersion tells if a version of a package is installed
func (r *Repository) HasVersion(id, version string) (bool, error) {
	return r.store.HasVersion(id, version)
}

// acquire the repository lock for a mutating operation. The returned function releases it.
//
// The configuration is reloaded once the lock is held, so that changes saved by other
// processes since Open are not overwritten.
func (r *Repository) acquire() (func(), error) {
	lock, err := acquireLock(r.fs, r.root)
	if err != nil {
		return nil, err
	}
	if err = r.config.Reload(); err != nil {
		lock.release()
		return nil, err
	}
	r.lock = lock
	return func() {
		lock.release()
		r.lock = nil
	}, nil
}

// checkLock fails with status.ErrLockLost when the lock of an ongoing operation was lost
func (r *Repository) checkLock() error {
	if r.lock != nil && !r.lock.Held() {
		return status.ErrLockLost.Wrapf("%s", r.lock.path)
	}
	return nil
}

// openSource opens a configured source
func (r *Repository) openSource(id string) (*source.Source, error) {
	cfg, err := r.config.GetSource(id)
	if err != nil {
		return nil, err
	}
	return source.Open(cfg,
		source.WithFs(r.settings.sourceFs),
		source.WithFetcher(r.settings.fetcher),
		source.WithLogger(r.l),
	)
}
