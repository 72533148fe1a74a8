package checkpoint

import (
	"github.com/rs/zerolog"

	"github.com/kocubinski/avl-ledger/ledger"
)

// Writer saves published snapshots in the background. Snapshots that queue up
// while a save is running are coalesced: only the newest one is written.
type Writer[V any] struct {
	store    *Store[V]
	log      zerolog.Logger
	saveChan chan *ledger.Snapshot[V]
	saveDone chan error
	last     *ledger.Snapshot[V]
}

func NewWriter[V any](store *Store[V], logger zerolog.Logger) *Writer[V] {
	w := &Writer[V]{
		store:    store,
		log:      logger,
		saveChan: make(chan *ledger.Snapshot[V], 1024),
		saveDone: make(chan error, 1),
	}
	go w.run()
	return w
}

// Hook returns the PublishHook feeding this writer. The ledger must stop
// committing before Close is called.
func (w *Writer[V]) Hook() ledger.PublishHook[V] {
	return func(_, next *ledger.Snapshot[V]) {
		w.saveChan <- next
	}
}

// Enqueue schedules snap for saving.
func (w *Writer[V]) Enqueue(snap *ledger.Snapshot[V]) {
	w.saveChan <- snap
}

func (w *Writer[V]) run() {
	var firstErr error
	for snap := range w.saveChan {
		// coalesce whatever else is already queued
	drain:
		for {
			select {
			case queued, ok := <-w.saveChan:
				if !ok {
					break drain
				}
				if queued.Version() > snap.Version() {
					snap = queued
				}
			default:
				break drain
			}
		}

		if firstErr != nil {
			continue
		}
		if w.last != nil && snap.Version() <= w.last.Version() {
			continue
		}
		if err := w.save(snap); err != nil {
			w.log.Error().Err(err).Uint64("version", snap.Version()).Msg("checkpoint failed")
			firstErr = err
			continue
		}
		w.log.Debug().Uint64("version", snap.Version()).Msg("checkpoint saved")
		w.last = snap
	}
	w.saveDone <- firstErr
	close(w.saveDone)
}

func (w *Writer[V]) save(snap *ledger.Snapshot[V]) error {
	if w.last != nil {
		err := w.store.SaveIncremental(w.last, snap)
		if err == nil {
			return nil
		}
		w.log.Warn().Err(err).Msg("incremental checkpoint failed, writing full snapshot")
	}
	return w.store.Save(snap)
}

// Close waits for queued snapshots to be written and returns the first save
// error, if any.
func (w *Writer[V]) Close() error {
	close(w.saveChan)
	return <-w.saveDone
}
