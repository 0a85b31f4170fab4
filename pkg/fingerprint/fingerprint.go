// Package fingerprint computes and verifies the content hashes declared by package manifests.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Option for the verifier
type Option func(*Maker)

// NumberOfWorkers sets the number of files hashed concurrently. It defaults to #cpus.
func NumberOfWorkers(no int) Option {
	return func(m *Maker) {
		if no > 0 {
			m.numberOfWorkers = no
		}
	}
}

// Maker computes and verifies file hashes
type Maker struct {
	numberOfWorkers int
}

// New verifier
func New(opts ...Option) *Maker {
	m := &Maker{
		numberOfWorkers: runtime.NumCPU(),
	}

	for _, apply := range opts {
		apply(m)
	}
	return m
}

// HashFile computes the hex-encoded SHA-256 of a file's bytes
func HashFile(fs afero.Fs, pth string) (string, error) {
	f, err := fs.Open(pth)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return Hash(f)
}

// Hash computes the hex-encoded SHA-256 of a stream
func Hash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify with default settings
func Verify(ctx context.Context, fs afero.Fs, dir string, manifest *model.Manifest) error {
	return New().Verify(ctx, fs, dir, manifest)
}

// Verify that every file declared by a manifest exists under dir and matches its declared hash.
//
// Files found under dir but not declared are ignored. On failure, the error is a
// *status.ChecksumMismatchError naming the first offending path, in path order.
// A manifest declaring no file is refused.
func (m *Maker) Verify(ctx context.Context, fs afero.Fs, dir string, manifest *model.Manifest) error {
	files := manifest.SortedFiles()
	if len(files) == 0 {
		return status.ErrChecksumMismatch.Wrapf("package %s@%s declares no file", manifest.ID, manifest.Version)
	}

	mismatches := make([]bool, len(files))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(m.numberOfWorkers)

	for i, pth := range files {
		i, pth := i, pth
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := m.check(fs, dir, pth, manifest.Files[pth])
			if err != nil {
				return err
			}
			mismatches[i] = !ok
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for i, pth := range files {
		if mismatches[i] {
			return status.NewChecksumMismatch(pth)
		}
	}
	return nil
}

// check a single file: missing files and empty declared hashes are mismatches, other
// I/O errors are reported as such
func (m *Maker) check(fs afero.Fs, dir, pth, expected string) (bool, error) {
	if expected == "" {
		return false, nil
	}
	if err := model.ValidateFilePath(pth); err != nil {
		return false, nil
	}

	actual, err := HashFile(fs, filepath.Join(dir, filepath.FromSlash(pth)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
