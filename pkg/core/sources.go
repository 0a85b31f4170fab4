package core

import (
	"github.com/oneconcern/pkgr/pkg/model"
	"go.uber.org/zap"
)

// Sources yields the configured sources, in configuration order
func (r *Repository) Sources() []model.SourceConfig {
	res := make([]model.SourceConfig, len(r.config.Source))
	copy(res, r.config.Source)
	return res
}

// AddSource registers a new source. Its packages are listed after the next update or sync.
func (r *Repository) AddSource(cfg model.SourceConfig) error {
	return r.withSources(func() error {
		return r.config.AddSource(cfg)
	})
}

// EnableSource enables a source: the packages of its snapshot are advertised again
func (r *Repository) EnableSource(id string) error {
	return r.withSources(func() error {
		return r.config.EnableSource(id)
	})
}

// DisableSource disables a source: its packages are no longer advertised, but its snapshot is kept
func (r *Repository) DisableSource(id string) error {
	return r.withSources(func() error {
		return r.config.DisableSource(id)
	})
}

// UpdateSource replaces the settings of a source
func (r *Repository) UpdateSource(id string, cfg model.SourceConfig) error {
	return r.withSources(func() error {
		return r.config.UpdateSource(id, cfg)
	})
}

// RemoveSource unregisters a source and deletes its snapshot
func (r *Repository) RemoveSource(id string) error {
	return r.withSources(func() error {
		if err := r.config.RemoveSource(id); err != nil {
			return err
		}
		return r.removeSnapshot(id)
	})
}

// withSources applies a change to the source registry under the repository lock,
// then patches the source section of the global index
func (r *Repository) withSources(change func() error) error {
	release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err = change(); err != nil {
		return err
	}
	if err = r.patchSources(); err != nil {
		return err
	}
	r.l.Info("sources updated", zap.Int("enabled", len(r.config.Enabled())))
	return nil
}
