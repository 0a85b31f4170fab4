// Copyright © 2018 One Concern

// Package ledger keeps the ordered list of versions installed for a package.
//
// The ledger is persisted as versions.txt: newline-delimited version tokens, oldest first.
// Version tokens are opaque: recency is only defined by the position of a token in its ledger.
// Positions are bound to the ledger they were taken from, so that versions of two different
// packages may never be compared by accident.
package ledger
