package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/pkgr/pkg/fingerprint"
	"github.com/oneconcern/pkgr/pkg/ledger"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSource = "main"

var demoFiles = map[string]string{
	"index.html": "<html>demo</html>",
	"js/app.js":  "console.log('demo')",
}

// sourceFixture is a local source directory, laid out like a published repository
type sourceFixture struct {
	t       testing.TB
	dir     string
	listing map[string]model.PackageInfo
}

func newSourceFixture(t testing.TB) *sourceFixture {
	t.Helper()
	return &sourceFixture{
		t:       t,
		dir:     t.TempDir(),
		listing: make(map[string]model.PackageInfo),
	}
}

func (f *sourceFixture) config(id string) model.SourceConfig {
	return model.SourceConfig{
		ID:      id,
		Name:    "source " + id,
		URL:     f.dir,
		Enabled: true,
	}
}

// publish a package version and advertise it as the latest one
func (f *sourceFixture) publish(id, version string, files map[string]string) *model.Manifest {
	f.t.Helper()
	manifest := model.NewManifest()
	manifest.ID = id
	manifest.Name = strings.ToUpper(id)
	manifest.Version = version
	manifest.Author = "tester"
	manifest.Entry = "index.html"

	dir := filepath.Join(f.dir, model.PackagesDir, id, version)
	for pth, content := range files {
		target := filepath.Join(dir, filepath.FromSlash(pth))
		require.NoError(f.t, os.MkdirAll(filepath.Dir(target), 0700))
		require.NoError(f.t, os.WriteFile(target, []byte(content), 0600))
		hash, err := fingerprint.Hash(strings.NewReader(content))
		require.NoError(f.t, err)
		manifest.AddFile(pth, hash)
	}
	content, err := json.MarshalIndent(manifest, "", "  ")
	require.NoError(f.t, err)
	require.NoError(f.t, os.WriteFile(filepath.Join(dir, model.MetadataFile), content, 0600))

	f.listing[id] = manifest.Info(model.GetLocationOfVersion(id, version))
	f.writeIndex()
	return manifest
}

// corrupt the published content of a file, keeping its declared hash
func (f *sourceFixture) corrupt(id, version, file string) {
	f.t.Helper()
	target := filepath.Join(f.dir, model.PackagesDir, id, version, filepath.FromSlash(file))
	require.NoError(f.t, os.WriteFile(target, []byte("tampered"), 0600))
}

func (f *sourceFixture) unlist(id string) {
	f.t.Helper()
	delete(f.listing, id)
	f.writeIndex()
}

func (f *sourceFixture) writeIndex() {
	f.t.Helper()
	index := model.NewIndex()
	for _, info := range f.listing {
		index.Packages = append(index.Packages, info)
	}
	index.Normalize()
	content, err := json.MarshalIndent(index, "", "  ")
	require.NoError(f.t, err)
	require.NoError(f.t, os.WriteFile(filepath.Join(f.dir, model.IndexFile), content, 0600))
}

func newTestRepo(t testing.TB, opts ...Option) *Repository {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	opts = append([]Option{
		CacheDir(filepath.Join(t.TempDir(), "cache")),
		Logger(zaptest.NewLogger(t)),
	}, opts...)
	r, err := Init(root, opts...)
	require.NoError(t, err)
	return r
}

// newSyncedRepo creates a repository registering the source fixture, with a fresh snapshot of it
func newSyncedRepo(t testing.TB, src *sourceFixture, opts ...Option) *Repository {
	t.Helper()
	r := newTestRepo(t, opts...)
	require.NoError(t, r.AddSource(src.config(testSource)))
	report, err := r.UpdateSources(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	return r
}

func ledgerOf(t testing.TB, r *Repository, id string) []string {
	t.Helper()
	l, err := ledger.Load(r.fs, model.GetPathToLedger(r.root, id))
	require.NoError(t, err)
	return l.Versions()
}

func indexBytes(t testing.TB, r *Repository) []byte {
	t.Helper()
	content, err := os.ReadFile(r.indexPath())
	require.NoError(t, err)
	return content
}

func snapshotVersions(t testing.TB, r *Repository, sourceID string) map[string]string {
	t.Helper()
	snapshot, err := r.Snapshot(sourceID)
	require.NoError(t, err)
	res := make(map[string]string, len(snapshot))
	for _, info := range snapshot {
		res[info.ID] = info.LatestVersion
	}
	return res
}

func listingVersions(f *sourceFixture) map[string]string {
	res := make(map[string]string, len(f.listing))
	for id, info := range f.listing {
		res[id] = info.LatestVersion
	}
	return res
}

// failureOf yields the first failure reported for an id
func failureOf(report *Report, id string) error {
	for _, f := range report.Failed {
		if f.ID == id {
			return f.Err
		}
	}
	return nil
}

func dirExists(pth string) bool {
	fi, err := os.Stat(pth)
	return err == nil && fi.IsDir()
}

func entriesIn(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
