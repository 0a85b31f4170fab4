// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"

	"github.com/oneconcern/pkgr/pkg/storage/status"
)

const (
	// MaxObjectSizeInMemory is the largest object ReadAll accepts (listings and manifests)
	MaxObjectSizeInMemory = 64 * 1024 * 1024

	// NoOverWrite makes Put fail with status.ErrExists when the key already exists
	NoOverWrite = true

	// OverWrite makes Put replace any existing object
	OverWrite = false
)

// Store implementations know how to read and write objects in a K/V model.
//
// Keys are slash-separated paths, relative to the root of the store.
// Examples are a local directory or a remote package source served over http(s).
// Read-only implementations fail write operations with status.ErrNotSupported.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// ReadAll fetches a whole object in memory
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	object, err := io.ReadAll(io.LimitReader(reader, MaxObjectSizeInMemory+1))
	if err != nil {
		return nil, err
	}
	if len(object) > MaxObjectSizeInMemory {
		return nil, status.ErrNotSupported.Wrapf("object %s is too big to be read into memory", key)
	}
	return object, nil
}

// CopyTo streams an object from a store to a writer, yielding the number of bytes copied
func CopyTo(ctx context.Context, store Store, key string, writer io.Writer) (int64, error) {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	return PipeIO(writer, reader)
}

// PipeIO copies a reader to a writer with a pooled buffer
func PipeIO(writer io.Writer, reader io.Reader) (int64, error) {
	buf := pipeBuffers.Get().(*[]byte)
	defer pipeBuffers.Put(buf)

	return io.CopyBuffer(writer, reader, *buf)
}
