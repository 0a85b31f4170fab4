package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	root := filepath.Join("tmp", "repo")

	assert.Equal(t, filepath.Join(root, "packages", "demo"), GetPathToPackage(root, "demo"))
	assert.Equal(t, filepath.Join(root, "packages", "demo", "0.1.0"), GetPathToVersion(root, "demo", "0.1.0"))
	assert.Equal(t, filepath.Join(root, "packages", "demo", "0.1.0", "metadata.json"), GetPathToManifest(root, "demo", "0.1.0"))
	assert.Equal(t, filepath.Join(root, "packages", "demo", "versions.txt"), GetPathToLedger(root, "demo"))
	assert.Equal(t, filepath.Join(root, "packages", "demo", "versions.txt.pending"), GetPathToPendingLedger(root, "demo"))
	assert.Equal(t, filepath.Join("cache", "sources", "main.json"), GetPathToSnapshot("cache", "main"))

	assert.Equal(t, "./packages/demo/0.1.0", GetLocationOfVersion("demo", "0.1.0"))
	assert.Equal(t, "packages/demo/0.1.0/metadata.json", GetSourcePathToManifest("demo", "0.1.0"))
	assert.Equal(t, "packages/demo/0.1.0/js/app.js", GetSourcePathToFile("demo", "0.1.0", "js/app.js"))
}

func TestLeftovers(t *testing.T) {
	assert.True(t, IsLeftover(filepath.Base(GetPathToTrash("r", "demo", "abc"))))
	assert.True(t, IsLeftover(filepath.Base(GetPathToIncoming("r", "demo", "abc"))))
	assert.True(t, IsLeftover(filepath.Base(GetPathToPendingLedger("r", "demo"))))
	assert.False(t, IsLeftover("0.1.0"))
	assert.False(t, IsLeftover(VersionsFile))

	assert.True(t, IsHidden(".trash-abc"))
	assert.False(t, IsHidden("demo"))
}
