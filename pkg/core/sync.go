package core

import (
	"context"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/ledger"
	"github.com/oneconcern/pkgr/pkg/metrics"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/source"
	"github.com/oneconcern/pkgr/pkg/storage"
	"go.uber.org/zap"
)

// SyncPlan is a synchronization computed against the current listing of a source
type SyncPlan struct {
	ChangeSet
	Listing []model.PackageInfo

	src *source.Source
}

// PrepareSync fetches the listing of a source and computes the changes to apply.
// It does not lock nor mutate the repository.
func (r *Repository) PrepareSync(ctx context.Context, sourceID string, mirror bool) (*SyncPlan, error) {
	src, err := r.openSource(sourceID)
	if err != nil {
		return nil, err
	}
	listing, err := src.Listing(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := r.loadSnapshot(sourceID)
	if err != nil {
		return nil, err
	}
	installed, err := r.installedVersions()
	if err != nil {
		return nil, err
	}

	return &SyncPlan{
		ChangeSet: PlanSync(sourceID, cached, listing, installed, mirror),
		Listing:   listing,
		src:       src,
	}, nil
}

// ApplySync installs the packages of a sync plan, one at a time, and updates the snapshot of the source.
//
// The snapshot entry of a package is updated as soon as it is installed. With a mirror plan, entries
// no longer listed are then dropped from the snapshot. Installed packages are never removed.
//
// Per-package failures are collected in the report. Fatal conditions (lock lost, storage exhausted,
// inconsistent ledger, cancellation) abort the batch and are returned as an error: packages installed
// so far remain. The source section of the global index is patched in all cases.
func (r *Repository) ApplySync(ctx context.Context, plan *SyncPlan) (*Report, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	sourceID := plan.Source
	l := r.l.With(zap.String("source", sourceID), zap.Bool("mirror", plan.Mirror))
	report := newReport(sourceID)

	snapshot, err := r.loadSnapshot(sourceID)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]model.PackageInfo, len(snapshot))
	for _, info := range snapshot {
		entries[info.ID] = info
	}
	save := func() error {
		infos := make([]model.PackageInfo, 0, len(entries))
		for _, info := range entries {
			infos = append(infos, info)
		}
		return r.saveSnapshot(sourceID, infos)
	}

	fatal := func() error {
		for _, change := range plan.Installs() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.checkLock(); err != nil {
				return err
			}

			err := r.installFrom(ctx, plan.src, change.ID, change.Version)
			if errors.Is(err, status.ErrAlreadyExists) {
				l.Debug("version already installed", zap.String("package", change.ID), zap.String("version", change.Version))
				err = nil
			}
			if err != nil {
				if isFatal(ctx, err) {
					return err
				}
				l.Warn("package sync failed", zap.String("package", change.ID), zap.Error(err))
				metrics.SyncFailure(sourceID)
				report.fail(change.ID, change.Version, err)
				continue
			}

			entries[change.ID] = change.Info
			if err := save(); err != nil {
				return err
			}
			report.Installed = append(report.Installed, change)
		}

		for _, change := range plan.Changes {
			if change.Kind == Unchanged {
				entries[change.ID] = change.Info
			}
		}
		if plan.Mirror {
			for _, change := range plan.Removals() {
				delete(entries, change.ID)
				report.Removed = append(report.Removed, change)
			}
		}
		return save()
	}()

	if err := r.patchSources(); err != nil {
		l.Error("could not patch index sources", zap.Error(err))
		fatal = errors.Join(fatal, err)
	}
	if fatal != nil {
		l.Error("sync aborted", zap.Error(fatal))
		return report, fatal
	}

	l.Info("source synchronized",
		zap.Int("installed", len(report.Installed)),
		zap.Int("removed", len(report.Removed)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// IncrementalSync installs new and updated packages from a source. It never removes anything.
func (r *Repository) IncrementalSync(ctx context.Context, sourceID string) (*Report, error) {
	return r.sync(ctx, sourceID, false)
}

// MirrorSync installs new and updated packages from a source, then drops from the snapshot
// of this source all packages it no longer lists.
func (r *Repository) MirrorSync(ctx context.Context, sourceID string) (*Report, error) {
	return r.sync(ctx, sourceID, true)
}

func (r *Repository) sync(ctx context.Context, sourceID string, mirror bool) (*Report, error) {
	plan, err := r.PrepareSync(ctx, sourceID, mirror)
	if err != nil {
		return nil, err
	}
	return r.ApplySync(ctx, plan)
}

// installFrom installs a version fetched from a source
func (r *Repository) installFrom(ctx context.Context, src *source.Source, id, version string) error {
	manifest, err := src.Manifest(ctx, id, version)
	if err != nil {
		return err
	}
	return r.install(ctx, installRequest{
		manifest: manifest,
		source:   src.ID(),
		fetch: func(ctx context.Context, file string, staged storage.Store) error {
			return src.Fetch(ctx, id, version, file, staged)
		},
	})
}

// installedVersions lists the ledger of every installed package
func (r *Repository) installedVersions() (Installed, error) {
	ids, err := r.store.Packages()
	if err != nil {
		return nil, err
	}
	installed := make(Installed, len(ids))
	for _, id := range ids {
		ldg, err := ledger.Load(r.fs, model.GetPathToLedger(r.root, id))
		if err != nil {
			if errors.Is(err, status.ErrNotFound) {
				continue
			}
			return nil, err
		}
		installed[id] = ldg.Versions()
	}
	return installed, nil
}
