package core

import (
	"context"
	"strings"

	"github.com/oneconcern/pkgr/pkg/core/status"
	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/oneconcern/pkgr/pkg/source"
	"go.uber.org/zap"
)

// Apply a change set computed by PlanInstall, PlanRemove or PrepareUpgrade.
//
// Changes are applied one at a time, each as its own transaction. Per-package failures are
// collected in the report, fatal conditions abort the remaining changes.
func (r *Repository) Apply(ctx context.Context, set ChangeSet) (*Report, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return r.apply(ctx, set)
}

func (r *Repository) apply(ctx context.Context, set ChangeSet) (*Report, error) {
	report := newReport(set.Source)
	sources := make(map[string]*source.Source)

	for _, change := range set.Changes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.checkLock(); err != nil {
			return report, err
		}

		var err error
		switch {
		case change.Installs():
			src, found := sources[change.Source]
			if !found {
				if src, err = r.openSource(change.Source); err != nil {
					report.fail(change.ID, change.Version, err)
					continue
				}
				sources[change.Source] = src
			}
			if err = r.installFrom(ctx, src, change.ID, change.Version); err == nil {
				report.Installed = append(report.Installed, change)
			}
		case change.Kind == Remove:
			if err = r.removeVersion(ctx, change.ID, change.Version); err == nil {
				report.Removed = append(report.Removed, change)
			}
		default:
			continue
		}

		if err != nil {
			if isFatal(ctx, err) {
				r.l.Error("operation aborted", zap.String("package", change.ID), zap.Error(err))
				return report, err
			}
			r.l.Warn("operation failed", zap.String("package", change.ID), zap.String("version", change.Version), zap.Error(err))
			report.fail(change.ID, change.Version, err)
		}
	}
	return report, nil
}

// InstallSpec designates a package to install: id, source:id or source:id:version
type InstallSpec struct {
	Source  string
	ID      string
	Version string
}

func (s InstallSpec) String() string {
	switch {
	case s.Source == "":
		return s.ID
	case s.Version == "":
		return s.Source + ":" + s.ID
	default:
		return s.Source + ":" + s.ID + ":" + s.Version
	}
}

// ParseInstallSpec parses a package designation of the form id, source:id or source:id:version
func ParseInstallSpec(spec string) (InstallSpec, error) {
	var res InstallSpec
	parts := splitSpec(spec)
	switch len(parts) {
	case 1:
		res.ID = parts[0]
	case 2:
		res.Source, res.ID = parts[0], parts[1]
	case 3:
		res.Source, res.ID, res.Version = parts[0], parts[1], parts[2]
	default:
		return res, status.ErrConfig.Wrapf("invalid package %q: expected id, source:id or source:id:version", spec)
	}

	if err := validateName("package id", res.ID); err != nil {
		return res, err
	}
	if res.Source != "" {
		if err := validateName("source id", res.Source); err != nil {
			return res, err
		}
	}
	if len(parts) == 3 {
		if err := validateName("version", res.Version); err != nil {
			return res, err
		}
	}
	return res, nil
}

// PlanInstall resolves the source and version of a package to install.
//
// Without a source, the package is taken from the enabled source advertising it in the global index
// (the last one in configuration order). Without a version, the version last listed by that source is used.
// Run UpdateSources first to refresh listings.
func (r *Repository) PlanInstall(spec InstallSpec) (ChangeSet, error) {
	change := Change{ID: spec.ID, Source: spec.Source, Version: spec.Version}

	if change.Source == "" {
		available, err := r.available()
		if err != nil {
			return ChangeSet{}, err
		}
		candidate, found := available[spec.ID]
		if !found {
			return ChangeSet{}, status.ErrNotFound.Wrapf("package %s is not advertised by any enabled source", spec.ID)
		}
		change.Source = candidate.Source
		if change.Version == "" || change.Version == candidate.LatestVersion {
			change.Version = candidate.LatestVersion
			change.Info = candidate.PackageInfo
		}
	} else {
		cfg, err := r.config.GetSource(change.Source)
		if err != nil {
			return ChangeSet{}, err
		}
		if !cfg.Enabled {
			return ChangeSet{}, status.ErrConfig.Wrapf("source %q is disabled", cfg.ID)
		}
		snapshot, err := r.loadSnapshot(change.Source)
		if err != nil {
			return ChangeSet{}, err
		}
		info, listed := findListed(snapshot, spec.ID)
		switch {
		case listed && (change.Version == "" || change.Version == info.LatestVersion):
			change.Version = info.LatestVersion
			change.Info = info
		case change.Version == "":
			return ChangeSet{}, status.ErrNotFound.Wrapf("package %s is not listed by source %q", spec.ID, change.Source)
		}
	}
	if change.Info.ID == "" {
		change.Info.ID = change.ID
		change.Info.LatestVersion = change.Version
	}

	installed, err := r.installedVersions()
	if err != nil {
		return ChangeSet{}, err
	}
	versions := installed[spec.ID]
	switch {
	case installed.Has(spec.ID, change.Version):
		change.Kind = Unchanged
	case len(versions) == 0:
		change.Kind = Add
	default:
		change.Kind = Update
	}
	if len(versions) > 0 {
		change.Previous = versions[len(versions)-1]
	}

	return ChangeSet{Source: change.Source, Changes: []Change{change}}, nil
}

// Install a package designated by an install spec
func (r *Repository) Install(ctx context.Context, spec string) (*Report, error) {
	parsed, err := ParseInstallSpec(spec)
	if err != nil {
		return nil, err
	}
	set, err := r.PlanInstall(parsed)
	if err != nil {
		return nil, err
	}
	return r.Apply(ctx, set)
}

// PlanRemove lists the versions to remove. An empty version designates all versions of a package.
func (r *Repository) PlanRemove(id, version string) (ChangeSet, error) {
	installed, err := r.installedVersions()
	if err != nil {
		return ChangeSet{}, err
	}
	versions, found := installed[id]
	if !found {
		return ChangeSet{}, status.ErrNotFound.Wrapf("package %s is not installed", id)
	}
	if version != "" {
		if !installed.Has(id, version) {
			return ChangeSet{}, status.ErrNotFound.Wrapf("package %s version %s is not installed", id, version)
		}
		versions = []string{version}
	}

	var set ChangeSet
	for _, v := range versions {
		set.Changes = append(set.Changes, Change{Kind: Remove, ID: id, Version: v, Previous: v})
	}
	return set, nil
}

// Remove a version of a package, or all its versions when version is empty
func (r *Repository) Remove(ctx context.Context, id, version string) (*Report, error) {
	set, err := r.PlanRemove(id, version)
	if err != nil {
		return nil, err
	}
	return r.Apply(ctx, set)
}

// PrepareUpgrade computes the upgrades of installed packages, or only of the given ones.
//
// A package is upgraded when the enabled source advertising it in the global index lists a version
// which is not in its ledger.
func (r *Repository) PrepareUpgrade(ids ...string) (ChangeSet, error) {
	installed, err := r.installedVersions()
	if err != nil {
		return ChangeSet{}, err
	}
	latest := make(map[string]string, len(installed))
	for id, versions := range installed {
		if len(versions) > 0 {
			latest[id] = versions[len(versions)-1]
		}
	}
	for _, id := range ids {
		if _, found := latest[id]; !found {
			return ChangeSet{}, status.ErrNotFound.Wrapf("package %s is not installed", id)
		}
	}

	available, err := r.available()
	if err != nil {
		return ChangeSet{}, err
	}
	return PlanUpgrade(latest, installed, available, ids...), nil
}

// Upgrade installed packages, or only the given ones
func (r *Repository) Upgrade(ctx context.Context, ids ...string) (*Report, error) {
	set, err := r.PrepareUpgrade(ids...)
	if err != nil {
		return nil, err
	}
	return r.Apply(ctx, set)
}

func findListed(infos []model.PackageInfo, id string) (model.PackageInfo, bool) {
	for _, info := range infos {
		if info.ID == id {
			return info, true
		}
	}
	return model.PackageInfo{}, false
}

func splitSpec(spec string) []string {
	return strings.Split(spec, ":")
}

func validateName(kind, name string) error {
	if err := model.ValidateName(kind, name); err != nil {
		return status.ErrConfig.Wrap(err)
	}
	return nil
}
