// Copyright © 2018 One Concern

package app

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/fingerprint"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/spf13/afero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// defaults for new packages
const (
	DefaultVersion     = "0.0.0"
	DefaultDescription = "A web application"
	DefaultAuthor      = "Unknown"
	DefaultType        = "webapp"
	DefaultCategory    = "utility"
	DefaultEntry       = "index.html"

	gitIgnoreFile    = ".gitignore"
	gitIgnoreContent = "/target/"
)

// Init a package skeleton in dir: a default metadata.json named after the directory, and a .gitignore.
// Existing files are left untouched.
func Init(fs afero.Fs, dir string) (*model.Manifest, error) {
	id := filepath.Base(filepath.Clean(dir))
	if err := model.ValidateName("package id", id); err != nil {
		return nil, status.ErrConfig.Wrap(err)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, localfs.Classify(err)
	}

	manifest, err := Load(fs, dir)
	switch {
	case err == nil:
	case status.ErrNotFound.Is(err):
		manifest = model.NewManifest()
		manifest.ID = id
		manifest.Name = id
		manifest.Version = DefaultVersion
		manifest.Description = DefaultDescription
		manifest.Author = DefaultAuthor
		manifest.Type = DefaultType
		manifest.Category = DefaultCategory
		manifest.Entry = DefaultEntry
		if err = Save(fs, dir, manifest); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	gitIgnore := filepath.Join(dir, gitIgnoreFile)
	if _, err = fs.Stat(gitIgnore); os.IsNotExist(err) {
		if err = localfs.WriteFileAtomic(fs, gitIgnore, []byte(gitIgnoreContent)); err != nil {
			return nil, err
		}
	}
	return manifest, nil
}

// New creates a package skeleton named id under baseDir, and returns its directory
func New(fs afero.Fs, id, baseDir string) (string, error) {
	if err := model.ValidateName("package id", id); err != nil {
		return "", status.ErrConfig.Wrap(err)
	}
	dir := filepath.Join(baseDir, id)
	if _, err := Init(fs, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Load the metadata.json of a package directory
func Load(fs afero.Fs, dir string) (*model.Manifest, error) {
	pth := filepath.Join(dir, model.MetadataFile)
	content, err := afero.ReadFile(fs, pth)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("no %s in %s", model.MetadataFile, dir)
		}
		return nil, err
	}
	manifest := model.NewManifest()
	if err = json.Unmarshal(content, manifest); err != nil {
		return nil, status.ErrConfig.Wrapf("invalid %s: %v", pth, err)
	}
	if manifest.Files == nil {
		manifest.Files = make(map[string]string)
	}
	if manifest.Permissions == nil {
		manifest.Permissions = []string{}
	}
	return manifest, nil
}

// Save the metadata.json of a package directory
func Save(fs afero.Fs, dir string, manifest *model.Manifest) error {
	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return localfs.WriteFileAtomic(fs, filepath.Join(dir, model.MetadataFile), content)
}

// AddPath declares a file, or all files found under a directory, in the manifest of a package,
// with their current hash. It returns the declared paths, sorted.
//
// Paths must lie within the package directory. The metadata.json itself is never declared.
func AddPath(fs afero.Fs, packageDir, pth string) ([]string, error) {
	manifest, err := Load(fs, packageDir)
	if err != nil {
		return nil, err
	}
	files, err := walk(fs, packageDir, pth)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		hash, err := fingerprint.HashFile(fs, filepath.Join(packageDir, filepath.FromSlash(file)))
		if err != nil {
			return nil, err
		}
		manifest.AddFile(file, hash)
	}
	if err = Save(fs, packageDir, manifest); err != nil {
		return nil, err
	}
	return files, nil
}

// RemovePath drops a file, or all files declared under a directory, from the manifest of a package.
// Paths no longer present on disk may be removed too. It returns the removed paths, sorted.
func RemovePath(fs afero.Fs, packageDir, pth string) ([]string, error) {
	manifest, err := Load(fs, packageDir)
	if err != nil {
		return nil, err
	}
	rel, err := relativePath(packageDir, pth)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, file := range manifest.SortedFiles() {
		if rel == "" || file == rel || strings.HasPrefix(file, rel+"/") {
			manifest.RemoveFile(file)
			removed = append(removed, file)
		}
	}
	if len(removed) == 0 {
		return nil, status.ErrNotFound.Wrapf("%s is not declared in %s", pth, model.MetadataFile)
	}
	if err = Save(fs, packageDir, manifest); err != nil {
		return nil, err
	}
	return removed, nil
}

// walk lists the files found at pth, as slash-separated paths relative to the package directory
func walk(fs afero.Fs, packageDir, pth string) ([]string, error) {
	if _, err := relativePath(packageDir, pth); err != nil {
		return nil, err
	}
	fi, err := fs.Stat(pth)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("%s", pth)
		}
		return nil, err
	}

	var files []string
	collect := func(file string) error {
		rel, err := relativePath(packageDir, file)
		if err != nil {
			return err
		}
		if rel == model.MetadataFile {
			return nil
		}
		files = append(files, rel)
		return nil
	}

	if !fi.IsDir() {
		if err = collect(pth); err != nil {
			return nil, err
		}
	} else {
		err = afero.Walk(fs, pth, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			return collect(file)
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// relativePath of pth within the package directory, slash-separated. The package directory itself
// yields an empty path.
func relativePath(packageDir, pth string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(packageDir), filepath.Clean(pth))
	if err != nil {
		return "", status.ErrConfig.Wrapf("%s is not within package %s", pth, packageDir)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", status.ErrConfig.Wrapf("%s is not within package %s", pth, packageDir)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}
