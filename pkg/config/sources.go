// Copyright © 2018 One Concern

package config

import (
	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
)

// AddSource registers a new source and saves the configuration
func (c *Config) AddSource(source model.SourceConfig) error {
	if _, found := c.Find(source.ID); found {
		return status.ErrAlreadyExists.Wrapf("source %q", source.ID)
	}
	if err := ValidateSource(source); err != nil {
		return err
	}
	return c.apply(func(rc *model.RepositoryConfig) {
		rc.Source = append(rc.Source, source)
	})
}

// EnableSource enables a source and saves the configuration
func (c *Config) EnableSource(id string) error {
	return c.updateSource(id, func(s *model.SourceConfig) {
		s.Enabled = true
	})
}

// DisableSource disables a source and saves the configuration
func (c *Config) DisableSource(id string) error {
	return c.updateSource(id, func(s *model.SourceConfig) {
		s.Enabled = false
	})
}

// UpdateSource replaces the settings of a source, keeping its id, and saves the configuration
func (c *Config) UpdateSource(id string, updated model.SourceConfig) error {
	return c.updateSource(id, func(s *model.SourceConfig) {
		updated.ID = s.ID
		*s = updated
	})
}

// RemoveSource unregisters a source and saves the configuration
func (c *Config) RemoveSource(id string) error {
	if _, found := c.Find(id); !found {
		return status.ErrNotFound.Wrapf("source %q", id)
	}
	return c.apply(func(rc *model.RepositoryConfig) {
		kept := rc.Source[:0]
		for _, s := range rc.Source {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		rc.Source = kept
	})
}

// GetSource yields a source by id, or status.ErrNotFound
func (c *Config) GetSource(id string) (model.SourceConfig, error) {
	s, found := c.Find(id)
	if !found {
		return model.SourceConfig{}, status.ErrNotFound.Wrapf("source %q", id)
	}
	return s, nil
}

func (c *Config) updateSource(id string, update func(*model.SourceConfig)) error {
	if _, found := c.Find(id); !found {
		return status.ErrNotFound.Wrapf("source %q", id)
	}
	return c.apply(func(rc *model.RepositoryConfig) {
		for i := range rc.Source {
			if rc.Source[i].ID == id {
				update(&rc.Source[i])
				return
			}
		}
	})
}

// apply a change to a copy of the configuration, then save it. The configuration is left
// unchanged when the result is invalid or may not be saved.
func (c *Config) apply(change func(*model.RepositoryConfig)) error {
	previous := c.RepositoryConfig
	previous.Source = append([]model.SourceConfig(nil), c.Source...)

	change(&c.RepositoryConfig)
	if err := c.Save(); err != nil {
		c.RepositoryConfig = previous
		return err
	}
	return nil
}
