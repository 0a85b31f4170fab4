package core

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/ledger"
	"github.com/oneconcern/pkgr/pkg/metrics"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// fileFetcher writes a declared file of a package into the staging store
type fileFetcher func(ctx context.Context, file string, staged storage.Store) error

// installRequest describes a package version to commit into the store
type installRequest struct {
	manifest *model.Manifest
	source   string
	fetch    fileFetcher
}

// install runs the install transaction for a package version:
//
//  1. stage all declared files in the cache directory
//  2. verify them against the manifest
//  3. rename the staged directory into the store
//  4. append the version to the ledger
//  5. patch the global index
//
// Until step 3, a failure or a cancellation leaves no trace. A failure of steps 4 or 5 is
// reported as status.ErrLedgerInconsistent.
func (r *Repository) install(ctx context.Context, req installRequest) error {
	manifest := req.manifest
	id, version := manifest.ID, manifest.Version
	if err := manifest.Validate(); err != nil {
		return status.ErrChecksumMismatch.Wrapf("%s: %v", model.MetadataFile, err)
	}
	l := r.l.With(zap.String("package", id), zap.String("version", version))

	ldg, err := ledger.Open(r.fs, model.GetPathToLedger(r.root, id))
	if err != nil {
		return err
	}
	if ldg.Contains(version) {
		return status.ErrAlreadyExists.Wrapf("package %s version %s", id, version)
	}
	if exists, erh := r.store.HasVersion(id, version); erh != nil || exists {
		if erh != nil {
			return erh
		}
		return status.ErrLedgerInconsistent.Wrapf("package %s: version %s is in the store but not in the ledger", id, version)
	}

	staging := model.GetPathToStaging(r.CacheDir(), ksuid.New().String())
	defer func() {
		// after a successful commit, the staging directory is gone already
		_ = r.fs.RemoveAll(staging)
	}()

	if err = r.stage(ctx, staging, req); err != nil {
		return err
	}
	l.Debug("package staged", zap.String("staging", staging))

	if err = r.settings.verifier.Verify(ctx, r.fs, staging, manifest); err != nil {
		l.Warn("package verification failed", zap.Error(err))
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = r.checkLock(); err != nil {
		return err
	}

	if err = r.store.addVersion(id, version, staging); err != nil {
		return err
	}

	if err = ldg.Append(version); err == nil {
		err = ldg.Save()
	}
	if err != nil {
		l.Error("ledger update failed after commit", zap.Error(err))
		return inconsistent(err)
	}

	if err = r.patchInstalled(id); err != nil {
		l.Error("index update failed after commit", zap.Error(err))
		return inconsistent(err)
	}

	metrics.PackageInstalled(req.source)
	l.Info("package installed", zap.String("source", req.source))
	return nil
}

// stage fetches all declared files and the manifest into a staging directory
func (r *Repository) stage(ctx context.Context, staging string, req installRequest) error {
	if err := r.fs.MkdirAll(staging, 0700); err != nil {
		return localfs.Classify(err)
	}
	staged := localfs.New(afero.NewBasePathFs(r.fs, staging))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.settings.concurrentDownloads)
	for _, file := range req.manifest.SortedFiles() {
		file := file
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := model.ValidateFilePath(file); err != nil {
				return status.NewChecksumMismatch(file)
			}
			return req.fetch(gctx, file, staged)
		})
	}
	if err := group.Wait(); err != nil {
		return localfs.Classify(err)
	}

	content, err := json.MarshalIndent(req.manifest, "", "  ")
	if err != nil {
		return err
	}
	if err = staged.Put(ctx, model.MetadataFile, bytes.NewReader(content), storage.OverWrite); err != nil {
		return err
	}
	if err = r.fs.Remove(filepath.Join(staging, localfs.PutStageDir)); err != nil && !isNotExist(err) {
		return localfs.Classify(err)
	}
	return nil
}

// removeVersion runs the removal transaction for a package version:
//
//	(a) queue the new ledger as versions.txt.pending
//	(b) move the version directory to a hidden trash directory and delete it
//	(c) commit the ledger, or delete the package when no version is left
//	(d) patch the global index
//
// A failure at (b) leaves store and ledger unchanged. A failure after (b) is reported as
// status.ErrLedgerInconsistent.
func (r *Repository) removeVersion(ctx context.Context, id, version string) error {
	l := r.l.With(zap.String("package", id), zap.String("version", version))
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.checkLock(); err != nil {
		return err
	}

	ldg, err := ledger.Load(r.fs, model.GetPathToLedger(r.root, id))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return status.ErrNotFound.Wrapf("package %s", id)
		}
		return err
	}
	exists, err := r.store.HasVersion(id, version)
	if err != nil {
		return err
	}
	switch {
	case !ldg.Contains(version) && !exists:
		return status.ErrNotFound.Wrapf("package %s version %s", id, version)
	case !ldg.Contains(version):
		return status.ErrLedgerInconsistent.Wrapf("package %s: version %s is in the store but not in the ledger", id, version)
	case !exists:
		return status.ErrLedgerInconsistent.Wrapf("package %s: version %s is in the ledger but not in the store", id, version)
	}

	pending := ldg.Clone()
	if err = pending.Remove(version); err != nil {
		return err
	}
	pendingPath := model.GetPathToPendingLedger(r.root, id)
	if err = pending.SaveAs(pendingPath); err != nil {
		_ = r.fs.Remove(pendingPath)
		return err
	}

	trashed, err := r.store.trashVersion(id, version)
	if !trashed {
		_ = r.fs.Remove(pendingPath)
		return err
	}
	if err != nil {
		l.Warn("could not delete trashed version", zap.Error(err))
	}

	if pending.Len() == 0 {
		err = r.store.removePackage(id)
	} else {
		err = r.fs.Rename(pendingPath, ldg.Path())
	}
	if err != nil {
		l.Error("ledger update failed after removal", zap.Error(err))
		return inconsistent(err)
	}

	if err = r.patchInstalled(id); err != nil {
		l.Error("index update failed after removal", zap.Error(err))
		return inconsistent(err)
	}

	metrics.PackageRemoved()
	l.Info("package version removed")
	return nil
}

// inconsistent reports a failure occurring once the store has changed
func inconsistent(err error) error {
	if errors.Is(err, status.ErrLedgerInconsistent) {
		return err
	}
	return status.ErrLedgerInconsistent.Wrap(err)
}

// isFatal tells if an error must abort a batch of operations
func isFatal(ctx context.Context, err error) bool {
	return status.IsFatal(err) || ctx.Err() != nil ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
