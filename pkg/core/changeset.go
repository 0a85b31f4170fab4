package core

import (
	"sort"

	"github.com/oneconcern/pkgr/pkg/model"
)

// ChangeKind qualifies a planned change
type ChangeKind int

const (
	// Unchanged package: cached, identical and installed
	Unchanged ChangeKind = iota
	// Add a package not cached yet
	Add
	// Update a package advertised with another version than the cached one
	Update
	// Repair a package cached with the same version, but not installed
	Repair
	// Remove a package from the cached listing of a source (mirror only), or a version from the store
	Remove
)

func (k ChangeKind) String() string {
	switch k {
	case Add:
		return "add"
	case Update:
		return "update"
	case Repair:
		return "repair"
	case Remove:
		return "remove"
	default:
		return "unchanged"
	}
}

// Change is a planned change on a package
type Change struct {
	Kind     ChangeKind
	ID       string
	Version  string
	Previous string
	Source   string
	Info     model.PackageInfo
}

// Installs tells if applying this change installs a version
func (c Change) Installs() bool {
	return c.Kind == Add || c.Kind == Update || c.Kind == Repair
}

// ChangeSet is the result of planning an operation, before any side effect.
// Changes are sorted by package id.
type ChangeSet struct {
	Source  string
	Mirror  bool
	Changes []Change
}

// Installs lists the changes installing a version
func (c ChangeSet) Installs() []Change {
	return c.filter(func(ch Change) bool { return ch.Installs() })
}

// Removals lists the removals
func (c ChangeSet) Removals() []Change {
	return c.filter(func(ch Change) bool { return ch.Kind == Remove })
}

// Count changes of a given kind
func (c ChangeSet) Count(kind ChangeKind) int {
	n := 0
	for _, ch := range c.Changes {
		if ch.Kind == kind {
			n++
		}
	}
	return n
}

// Empty tells if applying the change set would not change anything
func (c ChangeSet) Empty() bool {
	return len(c.Installs()) == 0 && len(c.Removals()) == 0
}

func (c ChangeSet) filter(keep func(Change) bool) []Change {
	res := make([]Change, 0, len(c.Changes))
	for _, ch := range c.Changes {
		if keep(ch) {
			res = append(res, ch)
		}
	}
	return res
}

// Installed tells which versions of which packages are in the store
type Installed map[string][]string

// Has tells if a version of a package is installed
func (i Installed) Has(id, version string) bool {
	for _, v := range i[id] {
		if v == version {
			return true
		}
	}
	return false
}

// PlanSync computes the changes to synchronize the cached listing of a source with its current listing.
//
// Listed packages absent from the cache are added, those cached with another version are updated,
// and those cached with the same version but not installed are repaired. With mirror, cached
// packages absent from the listing are removed from the cache. Without mirror, nothing is removed.
func PlanSync(sourceID string, cached, listing []model.PackageInfo, installed Installed, mirror bool) ChangeSet {
	cache := make(map[string]model.PackageInfo, len(cached))
	for _, info := range cached {
		cache[info.ID] = info
	}
	listed := make(map[string]struct{}, len(listing))

	set := ChangeSet{Source: sourceID, Mirror: mirror}
	for _, info := range listing {
		listed[info.ID] = struct{}{}
		ch := Change{ID: info.ID, Version: info.LatestVersion, Source: sourceID, Info: info}

		previous, isCached := cache[info.ID]
		switch {
		case !isCached:
			ch.Kind = Add
		case previous.LatestVersion != info.LatestVersion:
			ch.Kind = Update
			ch.Previous = previous.LatestVersion
		case !installed.Has(info.ID, info.LatestVersion):
			ch.Kind = Repair
			ch.Previous = previous.LatestVersion
		default:
			ch.Kind = Unchanged
			ch.Previous = previous.LatestVersion
		}
		set.Changes = append(set.Changes, ch)
	}

	if mirror {
		for _, info := range cached {
			if _, ok := listed[info.ID]; ok {
				continue
			}
			set.Changes = append(set.Changes, Change{
				Kind:     Remove,
				ID:       info.ID,
				Previous: info.LatestVersion,
				Source:   sourceID,
				Info:     info,
			})
		}
	}

	sortChanges(set.Changes)
	return set
}

// PlanUpgrade computes the upgrades of installed packages.
//
// A package is upgraded when the source advertising it (the last enabled source in configuration order)
// lists a version which is not in its ledger. latest maps installed package ids to their ledger's
// latest version. When ids are given, only those packages are considered.
func PlanUpgrade(latest map[string]string, installed Installed, available map[string]availablePackage, ids ...string) ChangeSet {
	selected := ids
	if len(selected) == 0 {
		for id := range latest {
			selected = append(selected, id)
		}
	}

	var set ChangeSet
	for _, id := range selected {
		current, isInstalled := latest[id]
		if !isInstalled {
			continue
		}
		candidate, isAvailable := available[id]
		if !isAvailable || installed.Has(id, candidate.LatestVersion) {
			set.Changes = append(set.Changes, Change{Kind: Unchanged, ID: id, Version: current, Previous: current})
			continue
		}
		set.Changes = append(set.Changes, Change{
			Kind:     Update,
			ID:       id,
			Version:  candidate.LatestVersion,
			Previous: current,
			Source:   candidate.Source,
			Info:     candidate.PackageInfo,
		})
	}

	sortChanges(set.Changes)
	return set
}

func sortChanges(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].ID != changes[j].ID {
			return changes[i].ID < changes[j].ID
		}
		return changes[i].Version < changes[j].Version
	})
}
