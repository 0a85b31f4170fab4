// Copyright © 2018 One Concern

package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/status"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

/* thread-safe local storage implementation.
 * Put() is atomic via afero.Fs.Rename(): objects are written in a staging area,
 * then Rename()d into place.
 */

// PutStageDir is the hidden directory at the root of a store, where Put writes objects before
// renaming them into place. It is left behind, empty, after successful writes.
const PutStageDir = ".put-stage"

// New creates a new local file system backed store.
//
// Keys are slash-separated paths relative to the root of fs. When fs is nil, the store
// is rooted at the current directory.
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), ".")
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	pth, err := toPath(key)
	if err != nil {
		return false, err
	}
	fi, err := l.fs.Stat(pth)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !fi.IsDir(), nil
}

type localReader struct {
	objectReader io.ReadCloser
}

func (r localReader) WriteTo(writer io.Writer) (n int64, err error) {
	return storage.PipeIO(writer, r.objectReader)
}

func (r localReader) Close() error {
	return r.objectReader.Close()
}

func (r localReader) Read(p []byte) (n int, err error) {
	return r.objectReader.Read(p)
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotFound.Wrapf("object %q", key)
	}
	pth, _ := toPath(key)
	t, err := l.fs.Open(pth)
	if err != nil {
		return nil, err
	}
	return localReader{
		objectReader: t,
	}, nil
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	pth, err := toPath(key)
	if err != nil {
		return err
	}
	if exclusive {
		has, erh := l.Has(ctx, key)
		if erh != nil {
			return erh
		}
		if has {
			return status.ErrExists.Wrapf("object %q", key)
		}
	}

	stage := filepath.Join(PutStageDir, ksuid.New().String())
	if err = l.fs.MkdirAll(PutStageDir, 0700); err != nil {
		return Classify(fmt.Errorf("ensuring put staging directory: %w", err))
	}
	if err = writeFile(l.fs, stage, source); err != nil {
		_ = l.fs.Remove(stage)
		return Classify(fmt.Errorf("write record for %q: %w", key, err))
	}

	// Rename() doesn't create directories automatically
	if dir := filepath.Dir(pth); dir != "." {
		if err = l.fs.MkdirAll(dir, 0700); err != nil {
			_ = l.fs.Remove(stage)
			return Classify(fmt.Errorf("ensuring directories for %q: %w", key, err))
		}
	}
	if err = l.fs.Rename(stage, pth); err != nil {
		_ = l.fs.Remove(stage)
		return Classify(err)
	}
	return nil
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	pth, err := toPath(key)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(pth); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]string, error) {
	const root = "."
	var res []string
	e := afero.Walk(l.fs, root, func(pth string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if pth == root {
			return nil
		}
		if info.IsDir() {
			if info.Name() == PutStageDir {
				return filepath.SkipDir
			}
			return nil
		}
		res = append(res, filepath.ToSlash(pth))
		return nil
	})
	if e != nil {
		return nil, e
	}
	sort.Strings(res)
	return res, nil
}

func (l *localFS) Clear(ctx context.Context) error {
	entries, err := afero.ReadDir(l.fs, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := l.fs.RemoveAll(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		return localfs
	}
}

// toPath converts a key into a path of the underlying fs, refusing keys escaping the store
func toPath(key string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if key == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", status.ErrInvalidKey.Wrapf("key %q", key)
	}
	if clean == PutStageDir || strings.HasPrefix(clean, PutStageDir+"/") {
		return "", status.ErrInvalidKey.Wrapf("key %q conflicts with put staging area name %q", key, PutStageDir)
	}
	return filepath.FromSlash(clean), nil
}

func writeFile(fs afero.Fs, pth string, source io.Reader) error {
	target, err := fs.OpenFile(pth, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	// If reader implements WriterTo, use it.
	if wt, ok := source.(io.WriterTo); ok {
		_, err = wt.WriteTo(target)
	} else {
		_, err = storage.PipeIO(target, source)
	}
	if err != nil {
		_ = target.Close()
		return err
	}
	if err = target.Sync(); err != nil {
		_ = target.Close()
		return err
	}
	return target.Close()
}
