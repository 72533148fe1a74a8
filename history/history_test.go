package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kocubinski/avl-ledger/history"
	"github.com/kocubinski/avl-ledger/ledger"
)

func intsEqual(a, b int) bool { return a == b }

func commit(t *testing.T, led *ledger.Ledger[int], fn ledger.TxFunc[int]) {
	t.Helper()
	require.True(t, led.Commit(fn))
}

func TestWalkAndFind(t *testing.T) {
	led := ledger.New[int]()
	for i := 1; i <= 5; i++ {
		commit(t, led, func(tx *ledger.Tx[int]) error {
			tx.Set("counter", i)
			return nil
		})
	}

	require.Equal(t, []uint64{5, 4, 3, 2, 1, 0}, history.Versions(led.Current()))

	snap, ok := history.Find(led.Current(), 3)
	require.True(t, ok)
	v, _ := snap.Get("counter")
	require.Equal(t, 3, v)

	_, ok = history.Find(led.Current(), 9)
	require.False(t, ok)

	var seen []uint64
	history.Walk(led.Current(), func(snap *ledger.Snapshot[int]) bool {
		seen = append(seen, snap.Version())
		return len(seen) < 2
	})
	require.Equal(t, []uint64{5, 4}, seen)
}

func TestDiff(t *testing.T) {
	led := ledger.New[int]()
	commit(t, led, func(tx *ledger.Tx[int]) error {
		tx.Set("a", 1)
		tx.Set("b", 2)
		tx.Set("c", 3)
		return nil
	})
	before := led.Current()
	commit(t, led, func(tx *ledger.Tx[int]) error {
		tx.Delete("a")
		tx.Set("b", 20)
		tx.Set("d", 4)
		return nil
	})
	after := led.Current()

	require.Equal(t, []history.Change[int]{
		{Kind: history.Removed, Key: "a", Old: 1},
		{Kind: history.Updated, Key: "b", Old: 2, New: 20},
		{Kind: history.Added, Key: "d", New: 4},
	}, history.Diff(before, after, intsEqual))

	require.Empty(t, history.Diff(after, after, intsEqual))
	require.Len(t, history.Diff(after.Previous().Previous(), after, intsEqual), 3)
	require.Equal(t, "updated", history.Updated.String())
}
