package core

import (
	"context"
	"path/filepath"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/spf13/afero"
)

// LocalSource is the source name recorded for packages added from a local directory
const LocalSource = "local"

// AddLocal adds an authored package directory, holding a metadata.json and the files it declares.
//
// Files are copied from the source file system, then verified like any downloaded package.
func (r *Repository) AddLocal(ctx context.Context, packageDir string) (*model.Manifest, error) {
	manifest, err := readManifest(r.settings.sourceFs, filepath.Join(packageDir, model.MetadataFile))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, status.ErrNotFound.Wrapf("no %s in %s", model.MetadataFile, packageDir)
		}
		return nil, err
	}

	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	files := localfs.New(afero.NewBasePathFs(r.settings.sourceFs, packageDir))
	err = r.install(ctx, installRequest{
		manifest: manifest,
		source:   LocalSource,
		fetch: func(ctx context.Context, file string, staged storage.Store) error {
			reader, err := files.Get(ctx, file)
			if err != nil {
				if errors.Is(err, status.ErrNotFound) {
					return status.NewChecksumMismatch(file)
				}
				return err
			}
			defer reader.Close()

			return staged.Put(ctx, file, reader, storage.NoOverWrite)
		},
	})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}
