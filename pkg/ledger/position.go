// Copyright © 2018 One Concern

package ledger

import "github.com/oneconcern/pkgr/pkg/core/status"

// Position of a version in a given ledger.
//
// Positions follow the current state of their ledger: a position taken before a removal
// still compares correctly afterwards, or fails with status.ErrNotFound when its own
// version was removed.
type Position struct {
	owner   *Ledger
	version string
}

// Position of a version in this ledger
func (l *Ledger) Position(version string) (Position, error) {
	if !l.Contains(version) {
		return Position{}, status.ErrNotFound.Wrapf("version %q", version)
	}
	return Position{owner: l, version: version}, nil
}

// Version at this position
func (p Position) Version() string {
	return p.version
}

// Index of this position in its ledger, 0 being the oldest version
func (p Position) Index() (int, error) {
	if p.owner == nil {
		return -1, status.ErrNotFound.Wrapf("version %q", p.version)
	}
	i := p.owner.indexOf(p.version)
	if i < 0 {
		return -1, status.ErrNotFound.Wrapf("version %q", p.version)
	}
	return i, nil
}

// Compare with another position of the same ledger: -1 when older, 1 when newer, 0 when equal
func (p Position) Compare(other Position) (int, error) {
	if p.owner != other.owner {
		return 0, status.ErrForeignLedger
	}
	i, err := p.Index()
	if err != nil {
		return 0, err
	}
	j, err := other.Index()
	if err != nil {
		return 0, err
	}
	switch {
	case i < j:
		return -1, nil
	case i > j:
		return 1, nil
	default:
		return 0, nil
	}
}

// NewerThan tells if this position is more recent than another one of the same ledger
func (p Position) NewerThan(other Position) (bool, error) {
	c, err := p.Compare(other)
	return c > 0, err
}
