// Package ledger is an in-memory, versioned key-value store with lock-free
// snapshot-isolated transactions.
//
// Every committed version is an immutable Snapshot wrapping the root of a
// persistent AVL tree. Writers build a new root inside a Tx and publish it by
// compare-and-swapping the ledger head; losing writers re-run their TxFunc
// against the new head until the retry budget is spent. Readers never block.
package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kocubinski/avl-ledger/avl"
)

var (
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	ErrTxFinalized          = errors.New("transaction already finalized")
)

// TxFunc mutates tx to describe a commit. It may be called several times for
// a single commit, each time against a newer head, so it must not have side
// effects beyond tx itself. Returning an error aborts the commit; nothing is
// published and the function is not retried.
type TxFunc[V any] func(tx *Tx[V]) error

// PublishHook is called synchronously after next has replaced prev as the
// ledger head. Hooks run on the committing goroutine, so publications from
// concurrent writers may be observed out of order.
type PublishHook[V any] func(prev, next *Snapshot[V])

type Ledger[V any] struct {
	head  atomic.Pointer[Snapshot[V]]
	opts  Options
	hooks []PublishHook[V]

	// beforePublish runs between building a candidate and the head CAS.
	// Only set from tests.
	beforePublish func()
}

// New returns an empty ledger with DefaultOptions.
func New[V any]() *Ledger[V] {
	return NewWithOptions[V](DefaultOptions())
}

func NewWithOptions[V any](opts Options, hooks ...PublishHook[V]) *Ledger[V] {
	return newLedger(emptySnapshot[V](), opts, hooks)
}

// Restore builds a ledger whose head holds entries at the given version and
// has no predecessor. It is meant for collaborators that reload a ledger
// from durable storage.
func Restore[V any](opts Options, version uint64, entries []avl.Entry[V], hooks ...PublishHook[V]) *Ledger[V] {
	var root *avl.Node[V]
	for _, e := range entries {
		root = avl.Set(root, e.Key, e.Value)
	}
	return newLedger(&Snapshot[V]{root: root, version: version}, opts, hooks)
}

func newLedger[V any](head *Snapshot[V], opts Options, hooks []PublishHook[V]) *Ledger[V] {
	if opts.RetryBudget < 0 {
		opts.RetryBudget = 0
	}
	l := &Ledger[V]{
		opts:  opts,
		hooks: hooks,
	}
	l.head.Store(head)
	opts.Metrics.published(head.version)
	return l
}

// Current returns the head snapshot.
func (l *Ledger[V]) Current() *Snapshot[V] {
	return l.head.Load()
}

// Commit applies fn atomically using the configured retry budget and
// reports whether it took effect.
func (l *Ledger[V]) Commit(fn TxFunc[V]) bool {
	return l.CommitWithRetry(fn, l.opts.RetryBudget)
}

// CommitWithRetry applies fn atomically, making at most retryBudget+1
// attempts. It returns false if every attempt lost the publish race or fn
// returned an error.
func (l *Ledger[V]) CommitWithRetry(fn TxFunc[V], retryBudget int) bool {
	_, err := l.UpdateWithRetry(fn, retryBudget)
	return err == nil
}

// Update is Commit returning the snapshot that holds fn's effects.
func (l *Ledger[V]) Update(fn TxFunc[V]) (*Snapshot[V], error) {
	return l.UpdateWithRetry(fn, l.opts.RetryBudget)
}

// UpdateWithRetry runs the optimistic commit loop. On success it returns the
// published snapshot, or the observed head if fn left the tree untouched.
// When all attempts lose the head CAS it returns ErrRetryBudgetExhausted.
func (l *Ledger[V]) UpdateWithRetry(fn TxFunc[V], retryBudget int) (*Snapshot[V], error) {
	if retryBudget < 0 {
		retryBudget = 0
	}
	logger := l.opts.Logger
	metrics := l.opts.Metrics

	for attempt := 1; attempt <= retryBudget+1; attempt++ {
		observed := l.head.Load()
		tx := newTx(observed, l.opts.RebalanceOnDelete)
		if err := fn(tx); err != nil {
			metrics.observe(resultAborted, attempt)
			logger.Debug().Err(err).Uint64("version", observed.version).Msg("commit aborted")
			return nil, fmt.Errorf("commit aborted at version %d: %w", observed.version, err)
		}

		candidate := tx.finalize()
		if candidate == observed.root {
			// nothing to publish
			metrics.observe(resultNoop, attempt)
			return observed, nil
		}

		next := newSnapshot(candidate, observed)
		if l.beforePublish != nil {
			l.beforePublish()
		}
		if l.head.CompareAndSwap(observed, next) {
			metrics.observe(resultCommitted, attempt)
			metrics.published(next.version)
			logger.Debug().
				Uint64("version", next.version).
				Int("attempt", attempt).
				Msg("published snapshot")
			for _, hook := range l.hooks {
				hook(observed, next)
			}
			return next, nil
		}

		metrics.conflict()
		logger.Debug().
			Uint64("observed_version", observed.version).
			Int("attempt", attempt).
			Msg("lost head CAS, retrying")
	}

	metrics.observe(resultExhausted, retryBudget+1)
	logger.Warn().Int("attempts", retryBudget+1).Msg("commit failed, retry budget exhausted")
	return nil, fmt.Errorf("%w after %d attempts", ErrRetryBudgetExhausted, retryBudget+1)
}
