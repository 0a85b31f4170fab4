// Copyright © 2018 One Concern

// Package app authors packages: it creates package skeletons and declares their files,
// with their hashes, in metadata.json.
package app
