// Copyright © 2018 One Concern

package model

import "strings"

// SourceConfig describes a configured package source.
//
// URL is either a remote http(s) location ending with a slash, or an absolute local directory.
type SourceConfig struct {
	ID           string `mapstructure:"id" toml:"id" json:"id"`
	Name         string `mapstructure:"name" toml:"name" json:"name"`
	URL          string `mapstructure:"url" toml:"url" json:"url"`
	Enabled      bool   `mapstructure:"enabled" toml:"enabled" json:"enabled"`
	RequireHTTPS bool   `mapstructure:"require_https" toml:"require_https" json:"require_https"`
}

// IsRemote tells if the source is fetched over http(s)
func (s SourceConfig) IsRemote() bool {
	return strings.HasPrefix(s.URL, "http://") || strings.HasPrefix(s.URL, "https://")
}

// RepositoryConfig is the content of config.toml
type RepositoryConfig struct {
	CacheDir string         `mapstructure:"cache_dir" toml:"cache_dir" json:"cache_dir"`
	Source   []SourceConfig `mapstructure:"source" toml:"source" json:"source"`
}

// Find a source by id
func (c *RepositoryConfig) Find(id string) (SourceConfig, bool) {
	for _, s := range c.Source {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Enabled yields enabled sources, in configuration order
func (c *RepositoryConfig) Enabled() []SourceConfig {
	res := make([]SourceConfig, 0, len(c.Source))
	for _, s := range c.Source {
		if s.Enabled {
			res = append(res, s)
		}
	}
	return res
}
