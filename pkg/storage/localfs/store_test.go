// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/storage"
	"github.com/oneconcern/pkgr/pkg/storage/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestHas(t *testing.T) {
	bs := setupStore(t)

	has, err := bs.Has(context.Background(), "sixteentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "nested/seventeentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "fifteentons")
	require.NoError(t, err)
	require.False(t, has)

	has, err = bs.Has(context.Background(), "nested")
	require.NoError(t, err)
	require.False(t, has, "directories are not objects")
}

func TestGet(t *testing.T) {
	bs := setupStore(t)

	rdr, err := bs.Get(context.Background(), "sixteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text", string(b))

	b, err = storage.ReadAll(context.Background(), bs, "nested/seventeentons")
	require.NoError(t, err)
	assert.Equal(t, "this is the text for another thing", string(b))

	_, err = bs.Get(context.Background(), "fifteentons")
	require.True(t, errors.Is(err, status.ErrNotFound))
}

func TestKeys(t *testing.T) {
	bs := setupStore(t)

	keys, err := bs.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"nested/seventeentons", "sixteentons"}, keys)
}

func TestDelete(t *testing.T) {
	bs := setupStore(t)

	require.NoError(t, bs.Delete(context.Background(), "nested/seventeentons"))
	require.NoError(t, bs.Delete(context.Background(), "nested/seventeentons"))
	k, _ := bs.Keys(context.Background())
	assert.Len(t, k, 1)
}

func TestClear(t *testing.T) {
	bs := setupStore(t)

	require.NoError(t, bs.Clear(context.Background()))
	k, _ := bs.Keys(context.Background())
	require.Empty(t, k)
}

func TestPut(t *testing.T) {
	bs := setupStore(t)
	ctx := context.Background()

	content := bytes.NewBufferString("here we go once again")
	require.NoError(t, bs.Put(ctx, "a/b/eighteentons", content, storage.NoOverWrite))

	var buf bytes.Buffer
	n, err := storage.CopyTo(ctx, bs, "a/b/eighteentons", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, len("here we go once again"), n)
	assert.Equal(t, "here we go once again", buf.String())

	err = bs.Put(ctx, "a/b/eighteentons", bytes.NewBufferString("again"), storage.NoOverWrite)
	require.True(t, errors.Is(err, status.ErrExists))

	require.NoError(t, bs.Put(ctx, "a/b/eighteentons", bytes.NewBufferString("again"), storage.OverWrite))
	b, err := storage.ReadAll(ctx, bs, "a/b/eighteentons")
	require.NoError(t, err)
	assert.Equal(t, "again", string(b))

	k, _ := bs.Keys(ctx)
	assert.Len(t, k, 3, "the staging area is not listed")
}

func TestInvalidKeys(t *testing.T) {
	bs := setupStore(t)
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "../escape", "a/../../escape", PutStageDir + "/x"} {
		_, err := bs.Has(ctx, key)
		assert.Truef(t, errors.Is(err, status.ErrInvalidKey), "expected key %q to be refused", key)
	}
}

func TestString(t *testing.T) {
	dir := t.TempDir()
	assert.Contains(t, New(afero.NewBasePathFs(afero.NewOsFs(), dir)).String(), "localfs@")
	assert.Equal(t, "localfs", New(afero.NewMemMapFs()).String())
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	target := filepath.Join(dir, "sub", "index.json")

	require.NoError(t, WriteFileAtomic(fs, target, []byte("one")))
	require.NoError(t, WriteFileAtomic(fs, target, []byte("two")))

	b, err := afero.ReadFile(fs, target)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := afero.ReadDir(fs, filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary file is left behind")
}

func TestClassify(t *testing.T) {
	require.NoError(t, Classify(nil))

	err := Classify(&wrappedErrno{unix.ENOSPC})
	require.True(t, errors.Is(err, status.ErrStorageExhausted))
	require.True(t, IsExhausted(err))
	require.Equal(t, err, Classify(err))

	plain := errors.New("boom")
	require.Equal(t, error(plain), Classify(plain))

	require.True(t, IsCrossDevice(&wrappedErrno{unix.EXDEV}))
	require.False(t, IsCrossDevice(plain))
}

type wrappedErrno struct {
	errno unix.Errno
}

func (e *wrappedErrno) Error() string { return "op: " + e.errno.Error() }
func (e *wrappedErrno) Unwrap() error { return e.errno }

func setupStore(t testing.TB) storage.Store {
	t.Helper()

	dir := t.TempDir()
	fs := afero.NewOsFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "sixteentons"), []byte("this is the text"), 0600))
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "nested"), 0700))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "nested", "seventeentons"), []byte("this is the text for another thing"), 0600))

	return New(afero.NewBasePathFs(fs, dir))
}
