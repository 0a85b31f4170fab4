package core

import (
	"fmt"
	"sort"
	"strings"
)

// Failure of a single package version, or of a source when updating listings
type Failure struct {
	ID      string
	Version string
	Err     error
}

func (f Failure) String() string {
	if f.Version == "" {
		return f.ID
	}
	return f.ID + "@" + f.Version
}

// Report summarizes the application of a change set.
//
// Per-package failures are collected in Failed, in order of occurrence, and do not abort the batch.
type Report struct {
	Source    string
	Installed []Change
	Removed   []Change
	Failed    []Failure
}

func newReport(source string) *Report {
	return &Report{Source: source}
}

func (r *Report) fail(id, version string, err error) {
	r.Failed = append(r.Failed, Failure{ID: id, Version: version, Err: err})
}

// FailedIDs lists the ids with at least one failure, sorted
func (r *Report) FailedIDs() []string {
	seen := make(map[string]struct{}, len(r.Failed))
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		ids = append(ids, f.ID)
	}
	sort.Strings(ids)
	return ids
}

// Err summarizes per-package failures as a single error, or nil when all went well
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	failed := make([]Failure, len(r.Failed))
	copy(failed, r.Failed)
	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].String() < failed[j].String()
	})

	var b strings.Builder
	for _, f := range failed {
		fmt.Fprintf(&b, "\n  %s: %v", f, f.Err)
	}
	return fmt.Errorf("%d package(s) failed:%s", len(failed), b.String())
}
