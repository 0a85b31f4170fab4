// Copyright © 2018 One Concern

// Package config loads, validates and saves the configuration of a repository (config.toml),
// including its registry of package sources.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const configMode = 0600

// DefaultCacheDir is the cache directory of a new repository, when none is specified
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "pkgr", "cache")
}

// Config is the configuration of a repository, bound to its config.toml
type Config struct {
	model.RepositoryConfig

	fs   afero.Fs
	path string
}

// New configuration, to be saved at path
func New(fs afero.Fs, path, cacheDir string) *Config {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	return &Config{
		RepositoryConfig: model.RepositoryConfig{
			CacheDir: cacheDir,
			Source:   []model.SourceConfig{},
		},
		fs:   fs,
		path: path,
	}
}

// rawSource captures missing boolean settings, which default to true
type rawSource struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	URL          string `mapstructure:"url"`
	Enabled      *bool  `mapstructure:"enabled"`
	RequireHTTPS *bool  `mapstructure:"require_https"`
}

type rawConfig struct {
	CacheDir string      `mapstructure:"cache_dir"`
	Source   []rawSource `mapstructure:"source"`
}

// Load and validate a config.toml.
//
// It fails with status.ErrNotFound when the file does not exist and with status.ErrConfig
// when it is malformed or invalid.
func Load(fs afero.Fs, path string) (*Config, error) {
	if _, err := fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("configuration %s", path)
		}
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("cache_dir", DefaultCacheDir())
	if err := v.ReadInConfig(); err != nil {
		return nil, status.ErrConfig.Wrap(err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, status.ErrConfig.Wrap(err)
	}

	c := New(fs, path, raw.CacheDir)
	for _, s := range raw.Source {
		c.Source = append(c.Source, model.SourceConfig{
			ID:           s.ID,
			Name:         s.Name,
			URL:          s.URL,
			Enabled:      s.Enabled == nil || *s.Enabled,
			RequireHTTPS: s.RequireHTTPS == nil || *s.RequireHTTPS,
		})
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the settings with the current content of config.toml
func (c *Config) Reload() error {
	fresh, err := Load(c.fs, c.path)
	if err != nil {
		return err
	}
	c.RepositoryConfig = fresh.RepositoryConfig
	return nil
}

// Path to config.toml
func (c *Config) Path() string {
	return c.path
}

// Marshal the configuration as TOML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(c.RepositoryConfig); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save validates the configuration, then writes it with write-new-then-replace semantics.
// The file is only readable by its owner.
func (c *Config) Save() error {
	if err := c.validate(); err != nil {
		return err
	}
	content, err := c.Marshal()
	if err != nil {
		return status.ErrConfig.Wrap(err)
	}
	if err := localfs.WriteFileAtomic(c.fs, c.path, content); err != nil {
		return err
	}
	return c.fs.Chmod(c.path, configMode)
}

// Validate a configuration: source ids are unique, urls are http(s) urls ending with a slash or
// absolute local paths, and sources requiring https use https.
func Validate(rc *model.RepositoryConfig) error {
	if strings.TrimSpace(rc.CacheDir) == "" {
		return status.ErrConfig.Wrapf("cache_dir is required")
	}

	seen := make(map[string]struct{}, len(rc.Source))
	for _, s := range rc.Source {
		if err := ValidateSource(s); err != nil {
			return err
		}
		if _, dup := seen[s.ID]; dup {
			return status.ErrConfig.Wrapf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validate() error {
	if err := Validate(&c.RepositoryConfig); err != nil {
		return err
	}
	return ValidateCacheDir(filepath.Dir(c.path), c.CacheDir)
}

// ValidateCacheDir refuses a cache directory holding the repository at root, or living in its
// packages directory. The cache directory is emptied by repository maintenance.
func ValidateCacheDir(root, cacheDir string) error {
	cache := filepath.Clean(cacheDir)
	switch {
	case isWithin(cache, filepath.Clean(root)):
		return status.ErrConfig.Wrapf("cache_dir %q contains the repository %q", cacheDir, root)
	case isWithin(filepath.Join(root, model.PackagesDir), cache):
		return status.ErrConfig.Wrapf("cache_dir %q is inside the packages directory of %q", cacheDir, root)
	}
	return nil
}

// isWithin tells if pth is dir or one of its descendants
func isWithin(dir, pth string) bool {
	rel, err := filepath.Rel(dir, pth)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateSource checks the settings of a single source
func ValidateSource(s model.SourceConfig) error {
	if err := model.ValidateName("source id", s.ID); err != nil {
		return status.ErrConfig.Wrap(err)
	}

	switch {
	case s.URL == "":
		return status.ErrConfig.Wrapf("source %q: url is required", s.ID)
	case s.IsRemote():
		if !strings.HasSuffix(s.URL, "/") {
			return status.ErrConfig.Wrapf("source %q: url %q must end with a slash", s.ID, s.URL)
		}
	case !filepath.IsAbs(s.URL):
		return status.ErrConfig.Wrapf("source %q: url %q must be an http(s) url or an absolute path", s.ID, s.URL)
	}

	if s.RequireHTTPS && !strings.HasPrefix(s.URL, "https://") {
		return status.ErrConfig.Wrapf("source %q requires https, but its url is %q", s.ID, s.URL)
	}
	return nil
}
