package core

import (
	"context"
	"os"

	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/model"
	"go.uber.org/zap"
)

// UpdateSources refreshes the snapshots of all enabled sources from their current listing,
// then patches the source section of the global index. Nothing is installed.
//
// A source which cannot be reached is reported as failed and keeps its previous snapshot.
func (r *Repository) UpdateSources(ctx context.Context) (*Report, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	report := newReport("")
	var fatal error
	for _, cfg := range r.config.Enabled() {
		if fatal = ctx.Err(); fatal != nil {
			break
		}
		listing, err := r.fetchListing(ctx, cfg.ID)
		if err == nil {
			err = r.saveSnapshot(cfg.ID, listing)
		}
		if err != nil {
			if isFatal(ctx, err) {
				fatal = err
				break
			}
			r.l.Warn("could not update source", zap.String("source", cfg.ID), zap.Error(err))
			report.fail(cfg.ID, "", err)
			continue
		}
		r.l.Info("source updated", zap.String("source", cfg.ID), zap.Int("packages", len(listing)))
	}

	if err := r.patchSources(); err != nil {
		return report, errors.Join(fatal, err)
	}
	return report, fatal
}

func (r *Repository) fetchListing(ctx context.Context, sourceID string) ([]model.PackageInfo, error) {
	src, err := r.openSource(sourceID)
	if err != nil {
		return nil, err
	}
	return src.Listing(ctx)
}

// UpdateLocal rebuilds the global index from the package store and ledgers.
//
// With repair, ledgers are first made to match the store (see Repair).
// Without it, an inconsistent store is reported as status.ErrLedgerInconsistent.
func (r *Repository) UpdateLocal(repair bool) (*model.Index, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if repair {
		if err = r.repair(); err != nil {
			return nil, err
		}
	} else if err = r.CheckConsistency(); err != nil {
		return nil, err
	}
	return r.GenerateGlobalIndex()
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, os.ErrNotExist)
}
