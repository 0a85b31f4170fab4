package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInstalled(t *testing.T) {
	x := NewIndex()
	x.SetInstalled(PackageInfo{ID: "b", LatestVersion: "1"})
	x.SetInstalled(PackageInfo{ID: "a", LatestVersion: "1"})
	x.SetInstalled(PackageInfo{ID: "c", LatestVersion: "1"})
	x.SetInstalled(PackageInfo{ID: "b", LatestVersion: "2"})

	require.Len(t, x.Packages, 3)
	assert.Equal(t, "a", x.Packages[0].ID)
	assert.Equal(t, "b", x.Packages[1].ID)
	assert.Equal(t, "c", x.Packages[2].ID)

	info, ok := x.Installed("b")
	require.True(t, ok)
	assert.Equal(t, "2", info.LatestVersion)

	x.RemoveInstalled("b")
	x.RemoveInstalled("unknown")
	_, ok = x.Installed("b")
	assert.False(t, ok)
	assert.Len(t, x.Packages, 2)
}

func TestIndexNormalize(t *testing.T) {
	x := &Index{Source: []PackageInfo{{ID: "z"}, {ID: "m"}}}
	x.Normalize()
	require.NotNil(t, x.Packages)
	assert.Empty(t, x.Packages)
	assert.Equal(t, "m", x.Source[0].ID)

	_, ok := x.Available("z")
	assert.True(t, ok)
}

func TestPackageInfoMatches(t *testing.T) {
	p := PackageInfo{ID: "calc", Name: "Calculator", Description: "Adds numbers", Author: "Ada"}
	assert.True(t, p.Matches(""))
	assert.True(t, p.Matches("CALC"))
	assert.True(t, p.Matches("numbers"))
	assert.True(t, p.Matches("ada"))
	assert.False(t, p.Matches("editor"))
}
