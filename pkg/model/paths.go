// Copyright © 2018 One Concern

package model

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// files and folders at the root of a repository
	ConfigFile   = "config.toml"
	IndexFile    = "index.json"
	PackagesDir  = "packages"
	LockFile     = ".lock"
	MetadataFile = "metadata.json"
	VersionsFile = "versions.txt"

	// folders in the cache directory
	StagingDir   = "staging"
	SnapshotsDir = "sources"

	pendingSuffix  = ".pending"
	trashPrefix    = ".trash-"
	incomingPrefix = ".incoming-"
)

// GetPathToPackage yields the directory holding all versions of a package
func GetPathToPackage(root, id string) string {
	return filepath.Join(root, PackagesDir, id)
}

// GetPathToVersion yields the directory of an installed version
func GetPathToVersion(root, id, version string) string {
	return filepath.Join(root, PackagesDir, id, version)
}

// GetPathToManifest yields the metadata.json of an installed version
func GetPathToManifest(root, id, version string) string {
	return filepath.Join(root, PackagesDir, id, version, MetadataFile)
}

// GetPathToLedger yields the versions.txt of a package
func GetPathToLedger(root, id string) string {
	return filepath.Join(root, PackagesDir, id, VersionsFile)
}

// GetPathToPendingLedger yields the queued ledger written during a removal
func GetPathToPendingLedger(root, id string) string {
	return GetPathToLedger(root, id) + pendingSuffix
}

// GetPathToTrash yields a hidden directory for a version being deleted
func GetPathToTrash(root, id, token string) string {
	return filepath.Join(root, PackagesDir, id, trashPrefix+token)
}

// GetPathToIncoming yields a hidden directory for a version being moved into the store
func GetPathToIncoming(root, id, token string) string {
	return filepath.Join(root, PackagesDir, id, incomingPrefix+token)
}

// GetPathToStaging yields a staging directory in the cache
func GetPathToStaging(cacheDir, token string) string {
	return filepath.Join(cacheDir, StagingDir, token)
}

// GetPathToSnapshot yields the cached listing of a source
func GetPathToSnapshot(cacheDir, sourceID string) string {
	return filepath.Join(cacheDir, SnapshotsDir, sourceID+".json")
}

// GetLocationOfVersion is the location recorded in the index for an installed version
func GetLocationOfVersion(id, version string) string {
	return "./" + path.Join(PackagesDir, id, version)
}

// GetSourcePathToManifest yields the key of a version's manifest, relative to a source root
func GetSourcePathToManifest(id, version string) string {
	return path.Join(PackagesDir, id, version, MetadataFile)
}

// GetSourcePathToFile yields the key of a version's file, relative to a source root
func GetSourcePathToFile(id, version, file string) string {
	return path.Join(PackagesDir, id, version, file)
}

// IsHidden tells if a store entry is internal bookkeeping rather than a package or version
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsLeftover tells if a store entry was left behind by an interrupted operation
func IsLeftover(name string) bool {
	return strings.HasPrefix(name, trashPrefix) ||
		strings.HasPrefix(name, incomingPrefix) ||
		name == VersionsFile+pendingSuffix
}
