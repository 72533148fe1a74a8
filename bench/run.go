package bench

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	api "github.com/kocubinski/costor-api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kocubinski/avl-ledger/ledger"
)

// Context drives generated changesets into a ledger. Each version is split
// across Workers goroutines by key, and every worker commits its share as one
// transaction, so workers race to publish on the same head.
type Context struct {
	context.Context

	Log             zerolog.Logger
	Generators      []ChangesetGenerator
	Workers         int
	VersionLimit    int64
	MetricLeafCount prometheus.Counter
	// MetricTxAttempts observes the attempts each worker transaction took,
	// counting resubmissions after an exhausted retry budget.
	MetricTxAttempts prometheus.Histogram
}

type Result struct {
	Versions    int64
	Leaves      int64
	Commits     int64
	Conflicts   int64
	Resubmits   int64
	Duration    time.Duration
	HeadVersion uint64
}

var seed = maphash.MakeSeed()

func (c *Context) Run(led *ledger.Ledger[[]byte]) (Result, error) {
	var res Result
	if c.Context == nil {
		c.Context = context.Background()
	}
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	itr, err := NewChangesetIterator(c.Generators)
	if err != nil {
		return res, err
	}

	start := time.Now()
	since := start
	var leaves, lastLeaves int64
	for ; itr.Valid(); err = itr.Next() {
		if err != nil {
			return res, err
		}
		if err = c.Err(); err != nil {
			return res, err
		}
		cs := itr.GetChangeset()
		if c.VersionLimit > 0 && cs.Version > c.VersionLimit {
			break
		}

		shares := make([][]*api.Node, workers)
		for _, n := range cs.Nodes {
			if n.Block != cs.Version {
				return res, fmt.Errorf("expected block %d; got %d", cs.Version, n.Block)
			}
			i := maphash.Bytes(seed, n.Key) % uint64(workers)
			shares[i] = append(shares[i], n)
		}

		stats, err := c.applyVersion(led, shares)
		res.Commits += stats.commits
		res.Conflicts += stats.conflicts
		res.Resubmits += stats.resubmits
		if err != nil {
			return res, fmt.Errorf("version %d: %w", cs.Version, err)
		}

		res.Versions++
		leaves += int64(len(cs.Nodes))
		if c.MetricLeafCount != nil {
			c.MetricLeafCount.Add(float64(len(cs.Nodes)))
		}
		if leaves-lastLeaves >= 100_000 {
			elapsed := time.Since(since)
			c.Log.Info().Msgf("processed %s leaves in %s; %s leaves/s; head version %d",
				humanize.Comma(leaves),
				elapsed,
				humanize.Comma(int64(float64(leaves-lastLeaves)/elapsed.Seconds())),
				led.Current().Version())
			lastLeaves = leaves
			since = time.Now()
		}
	}

	res.Leaves = leaves
	res.Duration = time.Since(start)
	res.HeadVersion = led.Current().Version()
	c.Log.Info().
		Int64("versions", res.Versions).
		Str("leaves", humanize.Comma(res.Leaves)).
		Int64("commits", res.Commits).
		Int64("conflicts", res.Conflicts).
		Int64("resubmits", res.Resubmits).
		Uint64("head", res.HeadVersion).
		Dur("took", res.Duration).
		Msg("run complete")
	return res, nil
}

type versionStats struct {
	commits   int64
	conflicts int64
	resubmits int64
}

func (c *Context) applyVersion(led *ledger.Ledger[[]byte], shares [][]*api.Node) (versionStats, error) {
	var (
		stats     versionStats
		commits   atomic.Int64
		conflicts atomic.Int64
		resubmits atomic.Int64
		wg        sync.WaitGroup
		errOnce   sync.Once
		firstErr  error
	)
	for _, share := range shares {
		if len(share) == 0 {
			continue
		}
		wg.Add(1)
		go func(nodes []*api.Node) {
			defer wg.Done()
			attempts, err := c.commitShare(led, nodes, &resubmits)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			commits.Add(1)
			conflicts.Add(int64(attempts - 1))
			if c.MetricTxAttempts != nil {
				c.MetricTxAttempts.Observe(float64(attempts))
			}
		}(share)
	}
	wg.Wait()

	stats.commits = commits.Load()
	stats.conflicts = conflicts.Load()
	stats.resubmits = resubmits.Load()
	return stats, firstErr
}

// commitShare applies nodes in one transaction, resubmitting whenever the
// retry budget runs out, and returns how many attempts it took in total.
func (c *Context) commitShare(led *ledger.Ledger[[]byte], nodes []*api.Node, resubmits *atomic.Int64) (int, error) {
	attempts := 0
	apply := func(tx *ledger.Tx[[]byte]) error {
		attempts++
		for _, n := range nodes {
			if n.Delete {
				tx.Delete(LedgerKey(n))
			} else {
				tx.Set(LedgerKey(n), n.Value)
			}
		}
		return nil
	}
	for {
		_, err := led.Update(apply)
		if err == nil {
			return attempts, nil
		}
		if !errors.Is(err, ledger.ErrRetryBudgetExhausted) {
			return attempts, err
		}
		if err := c.Err(); err != nil {
			return attempts, err
		}
		resubmits.Add(1)
		c.Log.Debug().Err(err).Int("attempts", attempts).Msg("resubmitting transaction")
	}
}
