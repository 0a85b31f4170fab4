// Copyright © 2018 One Concern

// Package source reads package listings, manifests and files from a configured source.
//
// A source is laid out like a repository: an index.json advertising packages in its
// "packages" section, and packages/<id>/<version>/ directories holding files and metadata.json.
package source

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/pkgr/pkg/config"
	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/httpfs"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source gives access to the packages of a configured source
type Source struct {
	cfg     model.SourceConfig
	store   storage.Store
	fetcher *httpfs.Fetcher
	l       *zap.Logger
}

// Open a source. Disabled sources and sources violating their https requirement are refused.
func Open(cfg model.SourceConfig, opts ...Option) (*Source, error) {
	if !cfg.Enabled {
		return nil, status.ErrConfig.Wrapf("source %q is disabled", cfg.ID)
	}
	if err := config.ValidateSource(cfg); err != nil {
		return nil, err
	}

	settings := defaultSettings(opts)
	var store storage.Store
	if cfg.IsRemote() {
		remote, err := httpfs.New(settings.fetcher, cfg.URL)
		if err != nil {
			return nil, status.ErrConfig.Wrap(err)
		}
		store = remote
	} else {
		store = localfs.New(afero.NewBasePathFs(settings.fs, cfg.URL))
	}

	return NewWithStore(cfg, store, WithLogger(settings.l), WithFetcher(settings.fetcher)), nil
}

// NewWithStore builds a source over some arbitrary store
func NewWithStore(cfg model.SourceConfig, store storage.Store, opts ...Option) *Source {
	settings := defaultSettings(opts)
	return &Source{
		cfg:     cfg,
		store:   storage.Instrument(settings.l, store),
		fetcher: settings.fetcher,
		l:       settings.l.With(zap.String("source", cfg.ID)),
	}
}

// ID of the source
func (s *Source) ID() string {
	return s.cfg.ID
}

// Config of the source
func (s *Source) Config() model.SourceConfig {
	return s.cfg
}

// Store backing this source
func (s *Source) Store() storage.Store {
	return s.store
}

// Listing fetches the packages currently advertised by the source, sorted by id.
//
// Locations are rewritten to point into the source. Entries with an invalid id or version
// are skipped. When an id is listed more than once, the last entry wins.
func (s *Source) Listing(ctx context.Context) ([]model.PackageInfo, error) {
	content, err := storage.ReadAll(ctx, s.store, model.IndexFile)
	if err != nil {
		return nil, s.wrap(err, "listing")
	}

	var index model.Index
	if err = json.Unmarshal(content, &index); err != nil {
		return nil, status.ErrConfig.Wrapf("source %q: invalid %s: %v", s.cfg.ID, model.IndexFile, err)
	}

	byID := make(map[string]int, len(index.Packages))
	listing := make([]model.PackageInfo, 0, len(index.Packages))
	for _, info := range index.Packages {
		if err := model.ValidateName("package id", info.ID); err != nil {
			s.l.Warn("skipping invalid listing entry", zap.Error(err))
			continue
		}
		if err := model.ValidateName("version", info.LatestVersion); err != nil {
			s.l.Warn("skipping invalid listing entry", zap.String("package", info.ID), zap.Error(err))
			continue
		}
		info.Location = s.Location(info.ID, info.LatestVersion)
		if i, dup := byID[info.ID]; dup {
			listing[i] = info
			continue
		}
		byID[info.ID] = len(listing)
		listing = append(listing, info)
	}

	model.SortInfos(listing)
	return listing, nil
}

// Location of a package version within the source
func (s *Source) Location(id, version string) string {
	if s.cfg.IsRemote() {
		return s.cfg.URL + model.GetSourcePathToFile(id, version, "")
	}
	return filepath.Join(s.cfg.URL, filepath.FromSlash(model.GetSourcePathToFile(id, version, "")))
}

// Manifest fetches the metadata.json of a package version.
//
// The manifest must describe the requested package and version.
func (s *Source) Manifest(ctx context.Context, id, version string) (*model.Manifest, error) {
	key := model.GetSourcePathToManifest(id, version)
	content, err := storage.ReadAll(ctx, s.store, key)
	if err != nil {
		return nil, s.wrap(err, key)
	}

	manifest := model.NewManifest()
	if err = json.Unmarshal(content, manifest); err != nil {
		return nil, status.ErrChecksumMismatch.Wrapf("%s: %v", key, err)
	}
	if manifest.ID != id || manifest.Version != version {
		return nil, status.NewChecksumMismatch(model.MetadataFile)
	}
	if err = manifest.Validate(); err != nil {
		return nil, status.ErrChecksumMismatch.Wrapf("%s: %v", key, err)
	}
	return manifest, nil
}

// Fetch copies a file of a package version into a store, under the path of the file.
//
// The file is written with storage.NoOverWrite. Reads of remote sources failing with a transient
// error, including a connection dropped while streaming the content, start over.
func (s *Source) Fetch(ctx context.Context, id, version, file string, dst storage.Store) error {
	key := model.GetSourcePathToFile(id, version, file)
	err := s.retry(ctx, func() error {
		reader, err := s.store.Get(ctx, key)
		if err != nil {
			return err
		}
		defer reader.Close()

		return dst.Put(ctx, file, reader, storage.NoOverWrite)
	})
	if err != nil {
		return s.wrap(err, key)
	}
	return nil
}

func (s *Source) retry(ctx context.Context, op func() error) error {
	if !s.cfg.IsRemote() {
		return op()
	}
	host := s.cfg.URL
	if u, err := url.Parse(s.cfg.URL); err == nil {
		host = u.Host
	}
	return s.fetcher.Retry(ctx, host, op)
}

func (s *Source) wrap(err error, what string) error {
	switch {
	case errors.Is(err, status.ErrNotFound):
		return status.ErrNotFound.Wrapf("source %q: %s", s.cfg.ID, what)
	case errors.Is(err, status.ErrNetwork), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("source %q: %s: %w", s.cfg.ID, what, err)
	}
}
