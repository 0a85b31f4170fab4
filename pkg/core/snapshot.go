package core

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/spf13/afero"
)

// snapshots are the last listings fetched from each source, kept in the cache directory

func (r *Repository) snapshots() storage.Store {
	return localfs.New(afero.NewBasePathFs(r.fs, filepath.Join(r.CacheDir(), model.SnapshotsDir)))
}

func snapshotKey(sourceID string) string {
	return sourceID + ".json"
}

func (r *Repository) loadSnapshot(sourceID string) ([]model.PackageInfo, error) {
	content, err := storage.ReadAll(context.Background(), r.snapshots(), snapshotKey(sourceID))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return []model.PackageInfo{}, nil
		}
		return nil, err
	}
	var infos []model.PackageInfo
	if err := json.Unmarshal(content, &infos); err != nil {
		return nil, status.ErrConfig.Wrapf("invalid snapshot %s: %v", model.GetPathToSnapshot(r.CacheDir(), sourceID), err)
	}
	model.SortInfos(infos)
	return infos, nil
}

func (r *Repository) saveSnapshot(sourceID string, infos []model.PackageInfo) error {
	if infos == nil {
		infos = []model.PackageInfo{}
	}
	model.SortInfos(infos)
	content, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return err
	}
	return r.snapshots().Put(context.Background(), snapshotKey(sourceID), bytes.NewReader(content), storage.OverWrite)
}

func (r *Repository) removeSnapshot(sourceID string) error {
	return r.snapshots().Delete(context.Background(), snapshotKey(sourceID))
}

// Snapshot yields the last listing fetched from a source
func (r *Repository) Snapshot(sourceID string) ([]model.PackageInfo, error) {
	return r.loadSnapshot(sourceID)
}
