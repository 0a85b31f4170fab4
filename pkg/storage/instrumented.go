// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"time"

	"github.com/oneconcern/pkgr/pkg/metrics"
	"go.uber.org/zap"
)

// Instrument a store with debug logs and metrics for every operation
func Instrument(l *zap.Logger, store Store) Store {
	if l == nil {
		l = zap.NewNop()
	}
	return &instrumentedStore{
		store: store,
		l:     l.With(zap.String("store", store.String())),
	}
}

type instrumentedStore struct {
	store Store
	l     *zap.Logger
}

func (i *instrumentedStore) done(op string, start time.Time, err error, fields ...zap.Field) {
	metrics.StorageOp(i.store.String(), op, start, err)
	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if err != nil {
		i.l.Debug("storage "+op+" failed", append(fields, zap.Error(err))...)
		return
	}
	i.l.Debug("storage "+op, fields...)
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (has bool, err error) {
	defer func(start time.Time) { i.done("has", start, err, zap.String("key", key)) }(time.Now())

	return i.store.Has(ctx, key)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (rdr io.ReadCloser, err error) {
	defer func(start time.Time) { i.done("get", start, err, zap.String("key", key)) }(time.Now())

	return i.store.Get(ctx, key)
}

func (i *instrumentedStore) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) (err error) {
	defer func(start time.Time) { i.done("put", start, err, zap.String("key", key)) }(time.Now())

	return i.store.Put(ctx, key, rdr, exclusive)
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { i.done("delete", start, err, zap.String("key", key)) }(time.Now())

	return i.store.Delete(ctx, key)
}

func (i *instrumentedStore) Keys(ctx context.Context) (keys []string, err error) {
	defer func(start time.Time) { i.done("keys", start, err, zap.Int("count", len(keys))) }(time.Now())

	return i.store.Keys(ctx)
}

func (i *instrumentedStore) Clear(ctx context.Context) (err error) {
	defer func(start time.Time) { i.done("clear", start, err) }(time.Now())

	return i.store.Clear(ctx)
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}
