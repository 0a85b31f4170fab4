// Copyright © 2018 One Concern

package ledger

import (
	"os"
	"strings"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"github.com/spf13/afero"
)

// Ledger is the ordered list of versions of a package
type Ledger struct {
	fs       afero.Fs
	path     string
	versions []string
}

// New empty ledger, to be saved at path
func New(fs afero.Fs, path string) *Ledger {
	return &Ledger{
		fs:       fs,
		path:     path,
		versions: []string{},
	}
}

// Load a ledger from its versions.txt.
//
// It fails with status.ErrNotFound when the file does not exist, and with
// status.ErrLedgerInconsistent when the file holds duplicate tokens.
func Load(fs afero.Fs, path string) (*Ledger, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotFound.Wrapf("ledger %s", path)
		}
		return nil, err
	}

	l := New(fs, path)
	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(content), "\n") {
		v := strings.TrimSpace(line)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			return nil, status.ErrLedgerInconsistent.Wrapf("duplicate version %q in %s", v, path)
		}
		seen[v] = struct{}{}
		l.versions = append(l.versions, v)
	}
	return l, nil
}

// Open loads a ledger, or yields an empty one when there is none yet
func Open(fs afero.Fs, path string) (*Ledger, error) {
	l, err := Load(fs, path)
	if err != nil {
		if status.ErrNotFound.Is(err) {
			return New(fs, path), nil
		}
		return nil, err
	}
	return l, nil
}

// Path to the versions.txt backing this ledger
func (l *Ledger) Path() string {
	return l.path
}

// Save the ledger in place
func (l *Ledger) Save() error {
	return l.SaveAs(l.path)
}

// SaveAs writes the ledger to some path, with write-new-then-replace semantics.
// The ledger keeps its own path.
func (l *Ledger) SaveAs(path string) error {
	return localfs.WriteFileAtomic(l.fs, path, l.Bytes())
}

// Bytes is the serialized ledger
func (l *Ledger) Bytes() []byte {
	return []byte(strings.Join(l.versions, "\n"))
}

// Append a version at the end of the ledger, as the newest one
func (l *Ledger) Append(version string) error {
	if err := model.ValidateName("version", version); err != nil {
		return err
	}
	if l.Contains(version) {
		return status.ErrAlreadyExists.Wrapf("version %q", version)
	}
	l.versions = append(l.versions, version)
	return nil
}

// Remove a version from the ledger, preserving the order of the others
func (l *Ledger) Remove(version string) error {
	i := l.indexOf(version)
	if i < 0 {
		return status.ErrNotFound.Wrapf("version %q", version)
	}
	l.versions = append(l.versions[:i], l.versions[i+1:]...)
	return nil
}

// Compare two versions by position: -1 when a is older than b, 1 when newer, 0 when equal
func (l *Ledger) Compare(a, b string) (int, error) {
	pa, err := l.Position(a)
	if err != nil {
		return 0, err
	}
	pb, err := l.Position(b)
	if err != nil {
		return 0, err
	}
	return pa.Compare(pb)
}

// Latest version, i.e. the last appended one
func (l *Ledger) Latest() (string, error) {
	if len(l.versions) == 0 {
		return "", status.ErrEmpty.Wrapf("ledger %s", l.path)
	}
	return l.versions[len(l.versions)-1], nil
}

// Versions in ledger order, oldest first
func (l *Ledger) Versions() []string {
	res := make([]string, len(l.versions))
	copy(res, l.versions)
	return res
}

// Len is the number of versions in the ledger
func (l *Ledger) Len() int {
	return len(l.versions)
}

// Contains tells if a version is in the ledger
func (l *Ledger) Contains(version string) bool {
	return l.indexOf(version) >= 0
}

// Clone yields a copy of this ledger, to be saved at another path
func (l *Ledger) Clone() *Ledger {
	return &Ledger{
		fs:       l.fs,
		path:     l.path,
		versions: l.Versions(),
	}
}

func (l *Ledger) indexOf(version string) int {
	for i, v := range l.versions {
		if v == version {
			return i
		}
	}
	return -1
}
