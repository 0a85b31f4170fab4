package core

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// packageStore is the on-disk hierarchy packages/<id>/<version>/ of a repository.
//
// Hidden entries (dot-names) are bookkeeping and are never reported as packages or versions.
type packageStore struct {
	fs   afero.Fs
	root string
}

func newPackageStore(fs afero.Fs, root string) *packageStore {
	return &packageStore{fs: fs, root: root}
}

// Packages lists the ids of all package directories, sorted
func (s *packageStore) Packages() ([]string, error) {
	return s.listDirs(filepath.Join(s.root, model.PackagesDir))
}

// VersionDirs lists the version directories of a package, sorted by name
func (s *packageStore) VersionDirs(id string) ([]string, error) {
	return s.listDirs(model.GetPathToPackage(s.root, id))
}

// Leftovers lists entries left behind by interrupted operations in a package directory
func (s *packageStore) Leftovers(id string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, model.GetPathToPackage(s.root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var res []string
	for _, entry := range entries {
		if model.IsLeftover(entry.Name()) {
			res = append(res, entry.Name())
		}
	}
	return res, nil
}

// HasVersion tells if a version directory exists
func (s *packageStore) HasVersion(id, version string) (bool, error) {
	fi, err := s.fs.Stat(model.GetPathToVersion(s.root, id, version))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

// ReadManifest reads the metadata.json of an installed version
func (s *packageStore) ReadManifest(id, version string) (*model.Manifest, error) {
	return readManifest(s.fs, model.GetPathToManifest(s.root, id, version))
}

// addVersion moves a staged (and verified) directory into the store.
//
// The move is a single rename. When the staging area lives on another device, the staged tree is
// first copied to a hidden directory next to its final position, then renamed.
// It is only called by the transaction coordinator.
func (s *packageStore) addVersion(id, version, stagedDir string) error {
	target := model.GetPathToVersion(s.root, id, version)
	exists, err := s.HasVersion(id, version)
	if err != nil {
		return err
	}
	if exists {
		return status.ErrAlreadyExists.Wrapf("package %s version %s", id, version)
	}
	if err = s.fs.MkdirAll(model.GetPathToPackage(s.root, id), 0700); err != nil {
		return localfs.Classify(err)
	}

	err = s.fs.Rename(stagedDir, target)
	if err == nil {
		return nil
	}
	if !localfs.IsCrossDevice(err) {
		return localfs.Classify(err)
	}

	incoming := model.GetPathToIncoming(s.root, id, ksuid.New().String())
	if err = copyTree(s.fs, stagedDir, s.fs, incoming); err != nil {
		_ = s.fs.RemoveAll(incoming)
		return localfs.Classify(err)
	}
	if err = s.fs.Rename(incoming, target); err != nil {
		_ = s.fs.RemoveAll(incoming)
		return localfs.Classify(err)
	}
	return nil
}

// trashVersion moves a version directory out of sight, then deletes it.
//
// Once the rename succeeded, the version is gone from the store: a failure to delete the trash
// is reported as a leftover by the consistency check.
func (s *packageStore) trashVersion(id, version string) (trashed bool, err error) {
	trash := model.GetPathToTrash(s.root, id, ksuid.New().String())
	if err = s.fs.Rename(model.GetPathToVersion(s.root, id, version), trash); err != nil {
		if os.IsNotExist(err) {
			return false, status.ErrNotFound.Wrapf("package %s version %s", id, version)
		}
		return false, err
	}
	return true, s.fs.RemoveAll(trash)
}

// removePackage deletes the whole directory of a package
func (s *packageStore) removePackage(id string) error {
	return s.fs.RemoveAll(model.GetPathToPackage(s.root, id))
}

func (s *packageStore) listDirs(dir string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	res := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || model.IsHidden(entry.Name()) {
			continue
		}
		res = append(res, entry.Name())
	}
	sort.Strings(res)
	return res, nil
}

func readManifest(fs afero.Fs, pth string) (*model.Manifest, error) {
	content, err := afero.ReadFile(fs, pth)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("manifest %s", pth)
		}
		return nil, err
	}
	manifest := model.NewManifest()
	if err := json.Unmarshal(content, manifest); err != nil {
		return nil, status.ErrConfig.Wrapf("invalid manifest %s: %v", pth, err)
	}
	return manifest, nil
}

// copyTree copies a directory tree, possibly across file systems
func copyTree(srcFs afero.Fs, src string, dstFs afero.Fs, dst string) error {
	return afero.Walk(srcFs, src, func(pth string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, pth)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return dstFs.MkdirAll(target, 0700)
		}
		return copyFile(srcFs, pth, dstFs, target)
	})
}

func copyFile(srcFs afero.Fs, src string, dstFs afero.Fs, dst string) error {
	in, err := srcFs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err = dstFs.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	out, err := dstFs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
