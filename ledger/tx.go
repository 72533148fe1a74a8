package ledger

import (
	"iter"

	"github.com/kocubinski/avl-ledger/avl"
)

// Tx is the scratch space handed to a TxFunc. It starts from the root of the
// snapshot the attempt observed and rebuilds its working root on every Set or
// Delete; reads see the transaction's own writes. A Tx is only valid for the
// duration of the TxFunc call it was passed to.
type Tx[V any] struct {
	base              *Snapshot[V]
	root              *avl.Node[V]
	rebalanceOnDelete bool
	finalized         bool
}

func newTx[V any](base *Snapshot[V], rebalanceOnDelete bool) *Tx[V] {
	return &Tx[V]{
		base:              base,
		root:              base.root,
		rebalanceOnDelete: rebalanceOnDelete,
	}
}

// Base returns the snapshot this attempt started from.
func (tx *Tx[V]) Base() *Snapshot[V] {
	return tx.base
}

func (tx *Tx[V]) Get(key string) (V, bool) {
	tx.checkOpen()
	return avl.Get(tx.root, key)
}

func (tx *Tx[V]) Has(key string) bool {
	tx.checkOpen()
	return avl.Has(tx.root, key)
}

func (tx *Tx[V]) Set(key string, value V) {
	tx.checkOpen()
	tx.root = avl.Set(tx.root, key, value)
}

// Delete removes key. Deleting an absent key leaves the working root as is.
func (tx *Tx[V]) Delete(key string) {
	tx.checkOpen()
	if tx.rebalanceOnDelete {
		tx.root = avl.RemoveBalanced(tx.root, key)
	} else {
		tx.root = avl.Remove(tx.root, key)
	}
}

// All iterates the working root in key order.
func (tx *Tx[V]) All() iter.Seq2[string, V] {
	tx.checkOpen()
	return avl.All(tx.root)
}

// finalize consumes the transaction and returns its candidate root.
func (tx *Tx[V]) finalize() *avl.Node[V] {
	tx.checkOpen()
	tx.finalized = true
	return tx.root
}

func (tx *Tx[V]) checkOpen() {
	if tx.finalized {
		panic(ErrTxFinalized)
	}
}
