package bench_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kocubinski/avl-ledger/avl"
	"github.com/kocubinski/avl-ledger/bench"
	"github.com/kocubinski/avl-ledger/ledger"
)

func smallGenerators(seed int64, versions int) []bench.ChangesetGenerator {
	gens := []bench.ChangesetGenerator{
		bench.BankLikeGenerator(seed, versions),
		bench.LockupLikeGenerator(seed, versions),
		bench.StakingLikeGenerator(seed, versions),
	}
	for i := range gens {
		gens[i].InitialSize /= 20
		gens[i].FinalSize /= 20
		gens[i].ChangePerVersion /= 10
		gens[i].ValueMean = 32
		gens[i].ValueStdDev = 16
	}
	return gens
}

func changesetHash(t *testing.T, gens []bench.ChangesetGenerator) string {
	itr, err := bench.NewChangesetIterator(gens)
	require.NoError(t, err)
	h := md5.New()
	for ; itr.Valid(); err = itr.Next() {
		require.NoError(t, err)
		for _, n := range itr.GetChangeset().Nodes {
			fmt.Fprintf(h, "%s|%x|%x|%t;", n.StoreKey, n.Key, n.Value, n.Delete)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func Test_ChangesetGenerator_Determinism(t *testing.T) {
	require.Equal(t, changesetHash(t, smallGenerators(1, 10)), changesetHash(t, smallGenerators(1, 10)))
	require.NotEqual(t, changesetHash(t, smallGenerators(1, 10)), changesetHash(t, smallGenerators(2, 10)))
}

func Test_ChangesetGenerator_Deletes(t *testing.T) {
	gens := smallGenerators(7, 20)
	itr, err := bench.NewChangesetIterator(gens)
	require.NoError(t, err)

	live := map[string]struct{}{}
	version := int64(0)
	for ; itr.Valid(); err = itr.Next() {
		require.NoError(t, err)
		cs := itr.GetChangeset()
		require.Equal(t, version+1, cs.Version)
		version = cs.Version
		for _, n := range cs.Nodes {
			require.Equal(t, cs.Version, n.Block)
			key := bench.LedgerKey(n)
			if n.Delete {
				_, ok := live[key]
				require.True(t, ok, "delete of missing key %x at version %d", n.Key, cs.Version)
				delete(live, key)
			} else {
				live[key] = struct{}{}
			}
		}
	}
	require.Equal(t, int64(20), version)

	var final int
	for _, gen := range gens {
		final += gen.FinalSize
	}
	require.InDelta(t, final, len(live), float64(len(gens)*2))
}

func Test_ChangesetGenerator_Invalid(t *testing.T) {
	_, err := bench.NewChangesetIterator(nil)
	require.Error(t, err)

	gens := smallGenerators(0, 5)
	gens[1].Versions = 6
	_, err = bench.NewChangesetIterator(gens)
	require.Error(t, err)

	gens = smallGenerators(0, 5)
	gens[0].FinalSize = gens[0].InitialSize - 1
	_, err = bench.NewChangesetIterator(gens)
	require.Error(t, err)
}

func sequentialState(t *testing.T, gens []bench.ChangesetGenerator) map[string][]byte {
	itr, err := bench.NewChangesetIterator(gens)
	require.NoError(t, err)
	state := map[string][]byte{}
	for ; itr.Valid(); err = itr.Next() {
		require.NoError(t, err)
		for _, n := range itr.GetChangeset().Nodes {
			if n.Delete {
				delete(state, bench.LedgerKey(n))
			} else {
				state[bench.LedgerKey(n)] = n.Value
			}
		}
	}
	return state
}

func TestRun(t *testing.T) {
	gens := smallGenerators(3, 15)
	want := sequentialState(t, gens)

	reg := prometheus.NewRegistry()
	leaves := prometheus.NewCounter(prometheus.CounterOpts{Name: "leaves"})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "attempts"})
	reg.MustRegister(leaves, attempts)

	opts := ledger.DefaultOptions()
	opts.RetryBudget = 1
	led := ledger.NewWithOptions[[]byte](opts)
	ctx := &bench.Context{
		Context:          context.Background(),
		Log:              zerolog.Nop(),
		Generators:       gens,
		Workers:          4,
		MetricLeafCount:  leaves,
		MetricTxAttempts: attempts,
	}
	res, err := ctx.Run(led)
	require.NoError(t, err)
	require.Equal(t, int64(15), res.Versions)
	require.Equal(t, float64(res.Leaves), testutil.ToFloat64(leaves))
	require.Equal(t, led.Current().Version(), res.HeadVersion)
	require.GreaterOrEqual(t, res.Commits, res.Versions)

	snap := led.Current()
	require.NoError(t, avl.Verify(snap.Root()))
	require.Equal(t, len(want), snap.Len())
	for k, v := range snap.All() {
		require.True(t, bytes.Equal(want[k], v), "value mismatch for %x", k)
	}
}

func TestRunVersionLimit(t *testing.T) {
	led := ledger.New[[]byte]()
	ctx := &bench.Context{
		Log:          zerolog.Nop(),
		Generators:   smallGenerators(5, 10),
		Workers:      2,
		VersionLimit: 3,
	}
	res, err := ctx.Run(led)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Versions)
}

func TestRunCanceled(t *testing.T) {
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := &bench.Context{
		Context:    cctx,
		Log:        zerolog.Nop(),
		Generators: smallGenerators(5, 10),
	}
	_, err := ctx.Run(ledger.New[[]byte]())
	require.ErrorIs(t, err, context.Canceled)
}
