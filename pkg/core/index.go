package core

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/ledger"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/storage/localfs"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Section of the global index
type Section int

const (
	// AllSections of the index
	AllSections Section = iota
	// InstalledSection lists installed packages
	InstalledSection
	// SourceSection lists packages advertised by sources
	SourceSection
)

// IndexFilter selects entries of the global index. Zero values match everything.
type IndexFilter struct {
	ID      string
	Section Section
	Text    string
}

func (f IndexFilter) filter(infos []model.PackageInfo) []model.PackageInfo {
	res := make([]model.PackageInfo, 0, len(infos))
	for _, info := range infos {
		if f.ID != "" && info.ID != f.ID {
			continue
		}
		if !info.Matches(f.Text) {
			continue
		}
		res = append(res, info)
	}
	return res
}

func (r *Repository) indexPath() string {
	return filepath.Join(r.root, model.IndexFile)
}

// LoadIndex reads the current global index. A missing index is empty.
func (r *Repository) LoadIndex() (*model.Index, error) {
	content, err := r.fs.Open(r.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewIndex(), nil
		}
		return nil, err
	}
	defer content.Close()

	index := model.NewIndex()
	if err := json.NewDecoder(content).Decode(index); err != nil {
		return nil, status.ErrConfig.Wrapf("invalid %s: %v", model.IndexFile, err)
	}
	index.Normalize()
	return index, nil
}

// Query the global index. It never locks nor mutates the repository.
func (r *Repository) Query(filter IndexFilter) (*model.Index, error) {
	index, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	res := model.NewIndex()
	if filter.Section != SourceSection {
		res.Packages = filter.filter(index.Packages)
	}
	if filter.Section != InstalledSection {
		res.Source = filter.filter(index.Source)
	}
	return res, nil
}

// GenerateGlobalIndex rebuilds the whole global index from the package store, the ledgers
// and the snapshots of enabled sources, then saves it.
func (r *Repository) GenerateGlobalIndex() (*model.Index, error) {
	index, err := r.buildIndex()
	if err != nil {
		return nil, err
	}
	if err = r.saveIndex(index); err != nil {
		return nil, err
	}
	return index, nil
}

// buildIndex computes the global index without saving it
func (r *Repository) buildIndex() (*model.Index, error) {
	index := model.NewIndex()

	ids, err := r.store.Packages()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		info, installed, err := r.installedInfo(id)
		if err != nil {
			return nil, err
		}
		if installed {
			index.Packages = append(index.Packages, info)
		}
	}

	if index.Source, err = r.buildSources(); err != nil {
		return nil, err
	}
	index.Normalize()
	return index, nil
}

// installedInfo summarizes the latest version of a package, as recorded by its ledger
func (r *Repository) installedInfo(id string) (model.PackageInfo, bool, error) {
	l, err := ledger.Load(r.fs, model.GetPathToLedger(r.root, id))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			r.l.Warn("package without ledger", zap.String("package", id))
			return model.PackageInfo{}, false, nil
		}
		return model.PackageInfo{}, false, err
	}
	latest, err := l.Latest()
	if err != nil {
		return model.PackageInfo{}, false, nil
	}
	manifest, err := r.store.ReadManifest(id, latest)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return model.PackageInfo{}, false, status.ErrLedgerInconsistent.Wrapf("package %s: latest version %s is not in the store", id, latest)
		}
		return model.PackageInfo{}, false, err
	}
	info := manifest.Info(model.GetLocationOfVersion(id, latest))
	info.ID = id
	info.LatestVersion = latest
	return info, true, nil
}

// buildSources merges the snapshots of enabled sources, in configuration order:
// later sources override earlier ones advertising the same id.
func (r *Repository) buildSources() ([]model.PackageInfo, error) {
	available, err := r.available()
	if err != nil {
		return nil, err
	}
	res := make([]model.PackageInfo, 0, len(available))
	for _, a := range available {
		res = append(res, a.PackageInfo)
	}
	model.SortInfos(res)
	return res, nil
}

// availablePackage is a package advertised by a source
type availablePackage struct {
	model.PackageInfo
	Source string
}

// available merges the snapshots of enabled sources, keyed by package id
func (r *Repository) available() (map[string]availablePackage, error) {
	res := make(map[string]availablePackage)
	for _, src := range r.config.Enabled() {
		snapshot, err := r.loadSnapshot(src.ID)
		if err != nil {
			return nil, err
		}
		for _, info := range snapshot {
			res[info.ID] = availablePackage{PackageInfo: info, Source: src.ID}
		}
	}
	return res, nil
}

// patchInstalled refreshes the installed entry of a single package in the saved index
func (r *Repository) patchInstalled(id string) error {
	index, err := r.LoadIndex()
	if err != nil {
		return err
	}
	info, installed, err := r.installedInfo(id)
	if err != nil {
		return err
	}
	if installed {
		index.SetInstalled(info)
	} else {
		index.RemoveInstalled(id)
	}
	return r.saveIndex(index)
}

// patchSources refreshes the source section of the saved index from the snapshots
func (r *Repository) patchSources() error {
	index, err := r.LoadIndex()
	if err != nil {
		return err
	}
	if index.Source, err = r.buildSources(); err != nil {
		return err
	}
	return r.saveIndex(index)
}

func (r *Repository) saveIndex(index *model.Index) error {
	index.Normalize()
	content, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return localfs.WriteFileAtomic(r.fs, r.indexPath(), content)
}
