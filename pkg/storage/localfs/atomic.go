// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"path/filepath"

	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// WriteFileAtomic writes a file under a unique temporary name next to its target, then renames it
// into place: readers either see the previous content or the new one, never a partial write.
func WriteFileAtomic(fs afero.Fs, pth string, content []byte) error {
	dir := filepath.Dir(pth)
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return Classify(err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(pth)+".tmp-"+ksuid.New().String())
	if err := writeFile(fs, tmp, bytes.NewReader(content)); err != nil {
		_ = fs.Remove(tmp)
		return Classify(err)
	}
	if err := fs.Rename(tmp, pth); err != nil {
		_ = fs.Remove(tmp)
		return Classify(err)
	}
	return nil
}
