package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitOpen(t *testing.T) {
	r := newTestRepo(t)

	assert.FileExists(t, filepath.Join(r.Root(), model.ConfigFile))
	assert.True(t, dirExists(filepath.Join(r.Root(), model.PackagesDir)))
	assert.JSONEq(t, `{"packages":[],"source":[]}`, string(indexBytes(t, r)))

	_, err := Init(r.Root())
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrAlreadyExists))

	reopened, err := Open(r.Root())
	require.NoError(t, err)
	assert.Equal(t, r.CacheDir(), reopened.CacheDir())

	_, err = Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = New("../escape", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrConfig))
}

func TestDemoScenario(t *testing.T) {
	ctx := context.Background()
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	src.publish("demo", "0.1.1", demoFiles)
	r := newSyncedRepo(t, src)

	report, err := r.Install(ctx, testSource+":demo:0.1.0")
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Installed, 1)
	assert.Equal(t, []string{"0.1.0"}, ledgerOf(t, r, "demo"))

	// latest advertised version, from the source advertising it
	report, err = r.Install(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, report.Installed, 1)
	assert.Equal(t, Update, report.Installed[0].Kind)
	assert.Equal(t, "0.1.0", report.Installed[0].Previous)
	assert.Equal(t, []string{"0.1.0", "0.1.1"}, ledgerOf(t, r, "demo"))

	index, err := r.LoadIndex()
	require.NoError(t, err)
	info, ok := index.Installed("demo")
	require.True(t, ok)
	assert.Equal(t, "0.1.1", info.LatestVersion)
	assert.Equal(t, "./packages/demo/0.1.1", info.Location)
	assert.Equal(t, "DEMO", info.Name)

	// already installed
	report, err = r.Install(ctx, testSource+":demo:0.1.1")
	require.NoError(t, err)
	assert.Empty(t, report.Installed)

	report, err = r.Remove(ctx, "demo", "0.1.0")
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"0.1.1"}, ledgerOf(t, r, "demo"))
	assert.False(t, dirExists(model.GetPathToVersion(r.Root(), "demo", "0.1.0")))
	content, err := os.ReadFile(filepath.Join(model.GetPathToVersion(r.Root(), "demo", "0.1.1"), "js", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, demoFiles["js/app.js"], string(content))

	index, err = r.LoadIndex()
	require.NoError(t, err)
	info, ok = index.Installed("demo")
	require.True(t, ok)
	assert.Equal(t, "0.1.1", info.LatestVersion)

	_, err = r.Remove(ctx, "demo", "0.1.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = r.Remove(ctx, "demo", "0.1.1")
	require.NoError(t, err)
	assert.False(t, dirExists(model.GetPathToPackage(r.Root(), "demo")))

	index, err = r.LoadIndex()
	require.NoError(t, err)
	_, ok = index.Installed("demo")
	assert.False(t, ok)
	_, ok = index.Available("demo")
	assert.True(t, ok, "the source section is independent from installed packages")
}

func TestRemoveAllVersions(t *testing.T) {
	ctx := context.Background()
	src := newSourceFixture(t)
	src.publish("demo", "1", demoFiles)
	src.publish("demo", "2", demoFiles)
	r := newSyncedRepo(t, src)

	for _, spec := range []string{"main:demo:1", "main:demo:2"} {
		_, err := r.Install(ctx, spec)
		require.NoError(t, err)
	}

	set, err := r.PlanRemove("demo", "")
	require.NoError(t, err)
	assert.Equal(t, 2, set.Count(Remove))

	report, err := r.Apply(ctx, set)
	require.NoError(t, err)
	assert.Len(t, report.Removed, 2)
	assert.False(t, dirExists(model.GetPathToPackage(r.Root(), "demo")))

	_, err = r.PlanRemove("demo", "")
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func TestChecksumMismatchLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	src.publish("broken", "1.0.0", demoFiles)
	src.corrupt("broken", "1.0.0", "js/app.js")
	r := newSyncedRepo(t, src)

	_, err := r.Install(ctx, "demo")
	require.NoError(t, err)

	indexBefore := indexBytes(t, r)
	packagesBefore := entriesIn(t, filepath.Join(r.Root(), model.PackagesDir))
	ledgerBefore := ledgerOf(t, r, "demo")

	report, err := r.Install(ctx, "broken")
	require.NoError(t, err)
	require.Error(t, report.Err())

	failure := failureOf(report, "broken")
	require.Error(t, failure)
	assert.True(t, errors.Is(failure, status.ErrChecksumMismatch))
	var mismatch *status.ChecksumMismatchError
	require.True(t, errors.As(failure, &mismatch))
	assert.Equal(t, "js/app.js", mismatch.Path)

	assert.Equal(t, indexBefore, indexBytes(t, r))
	assert.Equal(t, packagesBefore, entriesIn(t, filepath.Join(r.Root(), model.PackagesDir)))
	assert.Equal(t, ledgerBefore, ledgerOf(t, r, "demo"))
	assert.Empty(t, entriesIn(t, filepath.Join(r.CacheDir(), model.StagingDir)))
}

func TestCancelledInstallLeavesNoTrace(t *testing.T) {
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	r := newSyncedRepo(t, src)
	indexBefore := indexBytes(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Install(ctx, "demo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, dirExists(model.GetPathToPackage(r.Root(), "demo")))
	assert.Equal(t, indexBefore, indexBytes(t, r))
}

func TestInstallRefused(t *testing.T) {
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	r := newSyncedRepo(t, src)

	_, err := r.PlanInstall(InstallSpec{ID: "unknown"})
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = r.PlanInstall(InstallSpec{Source: "other", ID: "demo"})
	assert.True(t, errors.Is(err, status.ErrNotFound))

	require.NoError(t, r.DisableSource(testSource))
	_, err = r.PlanInstall(InstallSpec{Source: testSource, ID: "demo"})
	assert.True(t, errors.Is(err, status.ErrConfig))
	_, err = r.PlanInstall(InstallSpec{ID: "demo"})
	assert.True(t, errors.Is(err, status.ErrNotFound), "disabled sources advertise nothing")
}

func TestParseInstallSpec(t *testing.T) {
	for _, toPin := range []struct {
		spec     string
		expected InstallSpec
		wantErr  bool
	}{
		{spec: "demo", expected: InstallSpec{ID: "demo"}},
		{spec: "main:demo", expected: InstallSpec{Source: "main", ID: "demo"}},
		{spec: "main:demo:0.1.0", expected: InstallSpec{Source: "main", ID: "demo", Version: "0.1.0"}},
		{spec: "a:b:c:d", wantErr: true},
		{spec: "", wantErr: true},
		{spec: "main:", wantErr: true},
		{spec: "main:../x", wantErr: true},
	} {
		tc := toPin
		t.Run(tc.spec, func(t *testing.T) {
			spec, err := ParseInstallSpec(tc.spec)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, status.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, spec)
			assert.Equal(t, tc.spec, spec.String())
		})
	}
}

func TestAddLocal(t *testing.T) {
	ctx := context.Background()
	src := newSourceFixture(t)
	manifest := src.publish("authored", "0.0.1", demoFiles)
	dir := filepath.Join(src.dir, model.PackagesDir, "authored", "0.0.1")
	r := newTestRepo(t)

	added, err := r.AddLocal(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, manifest.Files, added.Files)
	assert.Equal(t, []string{"0.0.1"}, ledgerOf(t, r, "authored"))

	stored, err := r.Manifest("authored", "0.0.1")
	require.NoError(t, err)
	assert.Equal(t, manifest.Files, stored.Files)

	_, err = r.AddLocal(ctx, dir)
	assert.True(t, errors.Is(err, status.ErrAlreadyExists))

	_, err = r.AddLocal(ctx, t.TempDir())
	assert.True(t, errors.Is(err, status.ErrNotFound))

	// a declared file is missing
	require.NoError(t, os.Remove(filepath.Join(dir, "index.html")))
	manifest.Version = "0.0.2"
	content, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, model.MetadataFile), content, 0600))

	_, err = r.AddLocal(ctx, dir)
	require.Error(t, err)
	var mismatch *status.ChecksumMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "index.html", mismatch.Path)
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	src.publish("other", "1.0", demoFiles)
	r := newSyncedRepo(t, src)

	for _, id := range []string{"demo", "other"} {
		_, err := r.Install(ctx, id)
		require.NoError(t, err)
	}

	set, err := r.PrepareUpgrade()
	require.NoError(t, err)
	assert.True(t, set.Empty())

	src.publish("demo", "0.2.0", demoFiles)
	_, err = r.UpdateSources(ctx)
	require.NoError(t, err)

	set, err = r.PrepareUpgrade()
	require.NoError(t, err)
	require.Equal(t, 1, set.Count(Update))
	upgrade := set.Installs()[0]
	assert.Equal(t, "demo", upgrade.ID)
	assert.Equal(t, "0.1.0", upgrade.Previous)
	assert.Equal(t, "0.2.0", upgrade.Version)
	assert.Equal(t, testSource, upgrade.Source)

	_, err = r.PrepareUpgrade("missing")
	assert.True(t, errors.Is(err, status.ErrNotFound))

	report, err := r.Upgrade(ctx, "demo")
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"0.1.0", "0.2.0"}, ledgerOf(t, r, "demo"))
	assert.Equal(t, []string{"1.0"}, ledgerOf(t, r, "other"))
}

func TestSourcesPatchIndex(t *testing.T) {
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	r := newSyncedRepo(t, src)

	index, err := r.Query(IndexFilter{Section: SourceSection})
	require.NoError(t, err)
	require.Len(t, index.Source, 1)
	assert.Equal(t, filepath.Join(src.dir, "packages", "demo", "0.1.0"), index.Source[0].Location)

	require.NoError(t, r.DisableSource(testSource))
	index, err = r.LoadIndex()
	require.NoError(t, err)
	assert.Empty(t, index.Source)

	require.NoError(t, r.EnableSource(testSource))
	index, err = r.LoadIndex()
	require.NoError(t, err)
	assert.Len(t, index.Source, 1)

	err = r.AddSource(src.config(testSource))
	assert.True(t, errors.Is(err, status.ErrAlreadyExists))

	require.NoError(t, r.RemoveSource(testSource))
	index, err = r.LoadIndex()
	require.NoError(t, err)
	assert.Empty(t, index.Source)
	assert.Empty(t, r.Sources())
	assert.NoFileExists(t, model.GetPathToSnapshot(r.CacheDir(), testSource))

	reopened, err := Open(r.Root())
	require.NoError(t, err)
	assert.Empty(t, reopened.Sources())
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	src := newSourceFixture(t)
	src.publish("demo", "0.1.0", demoFiles)
	src.publish("notes", "2.0", demoFiles)
	r := newSyncedRepo(t, src)
	_, err := r.Install(ctx, "demo")
	require.NoError(t, err)

	index, err := r.Query(IndexFilter{})
	require.NoError(t, err)
	assert.Len(t, index.Packages, 1)
	assert.Len(t, index.Source, 2)

	index, err = r.Query(IndexFilter{Section: InstalledSection})
	require.NoError(t, err)
	assert.Len(t, index.Packages, 1)
	assert.Empty(t, index.Source)

	index, err = r.Query(IndexFilter{Text: "NOTES"})
	require.NoError(t, err)
	assert.Empty(t, index.Packages)
	require.Len(t, index.Source, 1)
	assert.Equal(t, "notes", index.Source[0].ID)

	index, err = r.Query(IndexFilter{ID: "demo", Section: SourceSection})
	require.NoError(t, err)
	require.Len(t, index.Source, 1)
}
