package core

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// repoLock is the advisory lock serializing mutating operations on a repository.
//
// On the OS file system, the lock is an flock on <root>/.lock, shared with other processes.
// On other file systems, the lock only serializes operations within this process.
// The lock file holds a unique token, so that a removed or replaced lock file is detected.
type repoLock struct {
	fs    afero.Fs
	path  string
	token string

	file *os.File
	mem  *sync.Mutex
}

type memLockKey struct {
	fs   afero.Fs
	path string
}

var memLocks sync.Map

func acquireLock(fs afero.Fs, root string) (*repoLock, error) {
	lock := &repoLock{
		fs:    fs,
		path:  filepath.Join(root, model.LockFile),
		token: ksuid.New().String(),
	}

	if _, isOS := fs.(*afero.OsFs); isOS {
		if err := lock.flock(); err != nil {
			return nil, err
		}
	} else {
		m, _ := memLocks.LoadOrStore(memLockKey{fs: fs, path: lock.path}, &sync.Mutex{})
		mu := m.(*sync.Mutex)
		if !mu.TryLock() {
			return nil, status.ErrLockContention.Wrapf("%s", lock.path)
		}
		lock.mem = mu
	}

	if err := afero.WriteFile(fs, lock.path, []byte(lock.token), 0600); err != nil {
		lock.release()
		return nil, err
	}
	return lock, nil
}

func (l *repoLock) flock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	if err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return status.ErrLockContention.Wrapf("%s", l.path)
		}
		return err
	}
	l.file = f
	return nil
}

// Held tells if the lock is still ours: the lock file must still exist and hold our token
func (l *repoLock) Held() bool {
	if l == nil {
		return false
	}
	content, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return false
	}
	if string(content) != l.token {
		return false
	}
	if l.file == nil {
		return true
	}
	fi, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	held, err := l.file.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(fi, held)
}

func (l *repoLock) release() {
	if l == nil {
		return
	}
	if l.file != nil {
		_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
		_ = l.file.Close()
		l.file = nil
	}
	if l.mem != nil {
		l.mem.Unlock()
		l.mem = nil
	}
}
