package core

import (
	"fmt"
	"path/filepath"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/ledger"
	"github.com/oneconcern/pkgr/pkg/model"
	"go.uber.org/zap"
)

// CheckConsistency verifies that every ledger matches its package directory: each ledger entry has
// a version directory, each version directory has a ledger entry, and no leftovers of interrupted
// operations remain. It fails with status.ErrLedgerInconsistent describing all problems found.
func (r *Repository) CheckConsistency() error {
	ids, err := r.store.Packages()
	if err != nil {
		return err
	}

	var problems []error
	for _, id := range ids {
		found, err := r.checkPackage(id)
		if err != nil {
			return err
		}
		problems = append(problems, found...)
	}
	if len(problems) > 0 {
		return status.ErrLedgerInconsistent.Wrap(errors.Join(problems...))
	}
	return nil
}

func (r *Repository) checkPackage(id string) ([]error, error) {
	var problems []error

	ldg, err := ledger.Load(r.fs, model.GetPathToLedger(r.root, id))
	switch {
	case errors.Is(err, status.ErrNotFound):
		problems = append(problems, fmt.Errorf("package %s has no %s", id, model.VersionsFile))
		ldg = ledger.New(r.fs, model.GetPathToLedger(r.root, id))
	case errors.Is(err, status.ErrLedgerInconsistent):
		return append(problems, fmt.Errorf("package %s: %w", id, err)), nil
	case err != nil:
		return nil, err
	}

	dirs, err := r.store.VersionDirs(id)
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		onDisk[dir] = struct{}{}
		if !ldg.Contains(dir) {
			problems = append(problems, fmt.Errorf("package %s: version %s is not in the ledger", id, dir))
		}
	}
	for _, v := range ldg.Versions() {
		if _, ok := onDisk[v]; !ok {
			problems = append(problems, fmt.Errorf("package %s: version %s has no directory", id, v))
		}
	}
	if len(dirs) == 0 && ldg.Len() == 0 {
		problems = append(problems, fmt.Errorf("package %s has no version", id))
	}

	leftovers, err := r.store.Leftovers(id)
	if err != nil {
		return nil, err
	}
	for _, name := range leftovers {
		problems = append(problems, fmt.Errorf("package %s: leftover %s", id, name))
	}
	return problems, nil
}

// Repair makes every ledger match its package directory, then rebuilds the global index.
//
// Ledger entries without a directory are dropped, keeping the order of the others. Directories
// without a ledger entry are appended, sorted by name. Leftovers of interrupted operations are deleted,
// and packages left without any version are removed.
func (r *Repository) Repair() (*model.Index, error) {
	return r.UpdateLocal(true)
}

func (r *Repository) repair() error {
	ids, err := r.store.Packages()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err = r.repairPackage(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) repairPackage(id string) error {
	l := r.l.With(zap.String("package", id))

	leftovers, err := r.store.Leftovers(id)
	if err != nil {
		return err
	}
	for _, name := range leftovers {
		if err = r.fs.RemoveAll(filepath.Join(model.GetPathToPackage(r.root, id), name)); err != nil && !isNotExist(err) {
			return err
		}
		l.Info("leftover removed", zap.String("leftover", name))
	}

	ledgerPath := model.GetPathToLedger(r.root, id)
	previous, err := ledger.Open(r.fs, ledgerPath)
	if err != nil {
		if !errors.Is(err, status.ErrLedgerInconsistent) {
			return err
		}
		// duplicated entries: rebuild from the directories only
		previous = ledger.New(r.fs, ledgerPath)
	}

	dirs, err := r.store.VersionDirs(id)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		l.Info("package without versions removed")
		return r.store.removePackage(id)
	}

	onDisk := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		onDisk[dir] = struct{}{}
	}
	repaired := ledger.New(r.fs, ledgerPath)
	for _, v := range previous.Versions() {
		if _, ok := onDisk[v]; !ok {
			l.Warn("ledger entry without directory dropped", zap.String("version", v))
			continue
		}
		if err = repaired.Append(v); err != nil {
			return err
		}
	}
	for _, dir := range dirs {
		if repaired.Contains(dir) {
			continue
		}
		if err = repaired.Append(dir); err != nil {
			l.Warn("version directory with an invalid name skipped", zap.String("version", dir), zap.Error(err))
			continue
		}
		l.Warn("directory without ledger entry recorded", zap.String("version", dir))
	}

	if repaired.Len() == 0 {
		return r.store.removePackage(id)
	}
	return repaired.Save()
}
