package fingerprint

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const helloHash = "315f5bdb76d078c43b8ac0064e4a0164612b1fce77c869345bfc94c75894edd3"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHashFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/pkg/hello.txt", []byte("Hello, world!"), 0600))

	h, err := HashFile(fs, "/pkg/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, helloHash, h)

	again, err := HashFile(fs, "/pkg/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, h, again)

	_, err = HashFile(fs, "/pkg/missing.txt")
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/staging/abc"
	writeFiles(t, fs, dir, map[string]string{
		"index.html":    "Hello, world!",
		"js/app.js":     "Hello, world!",
		"extra/unknown": "not declared",
	})

	manifest := model.NewManifest()
	manifest.ID, manifest.Version = "demo", "0.1.0"
	manifest.AddFile("index.html", helloHash)
	manifest.AddFile("js/app.js", strings.ToUpper(helloHash))

	ctx := context.Background()
	require.NoError(t, Verify(ctx, fs, dir, manifest), "extra files are tolerated, hashes are case insensitive")

	t.Run("mismatch names the first offending path", func(t *testing.T) {
		m := *manifest
		m.Files = map[string]string{
			"index.html": helloHash,
			"js/app.js":  "deadbeef",
			"z/last.js":  "deadbeef",
		}
		err := New(NumberOfWorkers(1)).Verify(ctx, fs, dir, &m)
		require.True(t, errors.Is(err, status.ErrChecksumMismatch))
		var cerr *status.ChecksumMismatchError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "js/app.js", cerr.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		m := *manifest
		m.Files = map[string]string{"index.html": helloHash, "css/missing.css": helloHash}
		err := Verify(ctx, fs, dir, &m)
		var cerr *status.ChecksumMismatchError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "css/missing.css", cerr.Path)
	})

	t.Run("empty hash", func(t *testing.T) {
		m := *manifest
		m.Files = map[string]string{"index.html": ""}
		err := Verify(ctx, fs, dir, &m)
		var cerr *status.ChecksumMismatchError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "index.html", cerr.Path)
	})

	t.Run("escaping path", func(t *testing.T) {
		m := *manifest
		m.Files = map[string]string{"../abc/index.html": helloHash}
		err := Verify(ctx, fs, dir, &m)
		require.True(t, errors.Is(err, status.ErrChecksumMismatch))
	})

	t.Run("no files", func(t *testing.T) {
		m := *manifest
		m.Files = map[string]string{}
		err := Verify(ctx, fs, dir, &m)
		require.True(t, errors.Is(err, status.ErrChecksumMismatch))
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := Verify(cctx, fs, dir, manifest)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func writeFiles(t testing.TB, fs afero.Fs, dir string, files map[string]string) {
	t.Helper()
	for pth, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(pth))
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0700))
		require.NoError(t, afero.WriteFile(fs, full, []byte(content), 0600))
	}
}
