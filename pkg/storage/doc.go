// Copyright © 2018 One Concern

// Package storage provides an interface to read and write objects on the backends serving packages.
//
// This package supports the following backends:
//   - local file system (localfs), used for local sources and staging
//   - remote http(s) package sources (httpfs), read-only
//
// Any store may be wrapped with Instrument to get logs and metrics about its operations.
package storage
