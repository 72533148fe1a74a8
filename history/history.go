// Package history reads the chain of snapshots a ledger leaves behind. Each
// published snapshot links to the one it replaced, so any head reaches every
// older version still referenced from it.
package history

import (
	"github.com/kocubinski/avl-ledger/avl"
	"github.com/kocubinski/avl-ledger/ledger"
)

// Walk calls fn for head and each of its predecessors, newest first, until
// fn returns false or the chain ends.
func Walk[V any](head *ledger.Snapshot[V], fn func(*ledger.Snapshot[V]) bool) {
	for snap := head; snap != nil; snap = snap.Previous() {
		if !fn(snap) {
			return
		}
	}
}

// Find returns the snapshot with the given version reachable from head.
func Find[V any](head *ledger.Snapshot[V], version uint64) (*ledger.Snapshot[V], bool) {
	var found *ledger.Snapshot[V]
	Walk(head, func(snap *ledger.Snapshot[V]) bool {
		if snap.Version() == version {
			found = snap
			return false
		}
		return snap.Version() > version
	})
	return found, found != nil
}

// Versions lists the versions reachable from head, newest first.
func Versions[V any](head *ledger.Snapshot[V]) []uint64 {
	var versions []uint64
	Walk(head, func(snap *ledger.Snapshot[V]) bool {
		versions = append(versions, snap.Version())
		return true
	})
	return versions
}

type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change describes how one key differs between two snapshots. Old is the
// zero value for Added and New is the zero value for Removed.
type Change[V any] struct {
	Kind ChangeKind
	Key  string
	Old  V
	New  V
}

// Diff lists the changes that turn from into to, in key order. equal decides
// whether a value present in both counts as updated. Subtrees shared by both
// snapshots are still visited; the cost is O(len(from) + len(to)).
func Diff[V any](from, to *ledger.Snapshot[V], equal func(a, b V) bool) []Change[V] {
	var changes []Change[V]
	left := avl.NewIterator(from.Root(), "", "", true)
	right := avl.NewIterator(to.Root(), "", "", true)
	for left.Valid() || right.Valid() {
		switch {
		case !right.Valid() || (left.Valid() && left.Key() < right.Key()):
			changes = append(changes, Change[V]{Kind: Removed, Key: left.Key(), Old: left.Value()})
			left.Next()
		case !left.Valid() || right.Key() < left.Key():
			changes = append(changes, Change[V]{Kind: Added, Key: right.Key(), New: right.Value()})
			right.Next()
		default:
			if !equal(left.Value(), right.Value()) {
				changes = append(changes, Change[V]{Kind: Updated, Key: left.Key(), Old: left.Value(), New: right.Value()})
			}
			left.Next()
			right.Next()
		}
	}
	return changes
}
