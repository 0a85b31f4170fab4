package core

import (
	"context"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultKeep is the number of versions of each package kept by Clean
const DefaultKeep = 2

// PlanClean lists the versions Clean would remove: all but the newest keep versions of each package,
// by ledger position.
func (r *Repository) PlanClean(keep int) (ChangeSet, error) {
	if keep < 1 {
		return ChangeSet{}, status.ErrConfig.Wrapf("clean must keep at least one version, got %d", keep)
	}
	installed, err := r.installedVersions()
	if err != nil {
		return ChangeSet{}, err
	}
	var set ChangeSet
	for id, versions := range installed {
		if len(versions) <= keep {
			continue
		}
		for _, v := range versions[:len(versions)-keep] {
			set.Changes = append(set.Changes, Change{Kind: Remove, ID: id, Version: v, Previous: v})
		}
	}
	sortChanges(set.Changes)
	return set, nil
}

// Clean empties the cache directory (staging area and source snapshots), which clears the source
// section of the global index, and removes superseded versions of installed packages.
func (r *Repository) Clean(ctx context.Context, keep int) (*Report, error) {
	set, err := r.PlanClean(keep)
	if err != nil {
		return nil, err
	}

	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	report, err := r.apply(ctx, set)
	if err != nil {
		return report, err
	}

	cache := localfs.New(afero.NewBasePathFs(r.fs, r.CacheDir()))
	if err = cache.Clear(ctx); err != nil {
		return report, err
	}
	if err = r.patchSources(); err != nil {
		return report, err
	}
	r.l.Info("repository cleaned", zap.Int("removed", len(report.Removed)), zap.Int("kept", keep))
	return report, nil
}
