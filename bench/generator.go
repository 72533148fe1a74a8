package bench

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	api "github.com/kocubinski/costor-api"
	"github.com/tidwall/btree"
)

var ErrNoKeys = errors.New("no keys")

func BankLikeGenerator(seed int64, versions int) ChangesetGenerator {
	return ChangesetGenerator{
		StoreKey:         "bank",
		Seed:             seed,
		KeyMean:          56,
		KeyStdDev:        3,
		ValueMean:        100,
		ValueStdDev:      1200,
		InitialSize:      3_500,
		FinalSize:        22_000,
		Versions:         versions,
		ChangePerVersion: 400,
		DeleteFraction:   0.06,
	}
}

func LockupLikeGenerator(seed int64, versions int) ChangesetGenerator {
	return ChangesetGenerator{
		StoreKey:         "lockup",
		Seed:             seed,
		KeyMean:          56,
		KeyStdDev:        3,
		ValueMean:        1936,
		ValueStdDev:      29261,
		InitialSize:      2_000,
		FinalSize:        10_000,
		Versions:         versions,
		ChangePerVersion: 250,
		DeleteFraction:   0.13,
	}
}

func StakingLikeGenerator(seed int64, versions int) ChangesetGenerator {
	return ChangesetGenerator{
		StoreKey:         "staking",
		Seed:             seed,
		KeyMean:          24,
		KeyStdDev:        2,
		ValueMean:        4000,
		ValueStdDev:      5000,
		InitialSize:      1_000,
		FinalSize:        5_000,
		Versions:         versions,
		ChangePerVersion: 150,
		DeleteFraction:   0.25,
	}
}

// ChangesetGenerator describes a synthetic store whose key count grows from
// InitialSize to FinalSize over Versions changesets.
type ChangesetGenerator struct {
	StoreKey         string  `json:"store_key"`
	Seed             int64   `json:"seed"`
	KeyMean          int     `json:"key_mean"`
	KeyStdDev        int     `json:"key_std_dev"`
	ValueMean        int     `json:"value_mean"`
	ValueStdDev      int     `json:"value_std_dev"`
	InitialSize      int     `json:"initial_size"`
	FinalSize        int     `json:"final_size"`
	Versions         int     `json:"versions"`
	ChangePerVersion int     `json:"change_per_version"`
	DeleteFraction   float64 `json:"delete_fraction"`
}

// Changeset is the set of writes for one version across all stores.
type Changeset struct {
	Version int64
	Nodes   []*api.Node
}

// LedgerKey is the key a node is stored under in the ledger.
func LedgerKey(n *api.Node) string {
	var sb strings.Builder
	sb.Grow(len(n.StoreKey) + 1 + len(n.Key))
	sb.WriteString(n.StoreKey)
	sb.WriteByte('/')
	sb.Write(n.Key)
	return sb.String()
}

type storeState struct {
	gen               ChangesetGenerator
	rng               *rand.Rand
	existingKeys      *btree.BTreeG[string]
	createsPerVersion float64
	createAccumulator float64
}

func newStoreState(c ChangesetGenerator) *storeState {
	createsPerVersion := 0.0
	if c.Versions > 1 {
		createsPerVersion = float64(c.FinalSize-c.InitialSize) / float64(c.Versions-1)
	}
	return &storeState{
		gen:               c,
		rng:               rand.New(rand.NewPCG(uint64(c.Seed), uint64(len(c.StoreKey)))),
		existingKeys:      btree.NewBTreeG(func(a, b string) bool { return a < b }),
		createsPerVersion: createsPerVersion,
	}
}

type changesetPlan struct {
	deletes int
	updates int
	creates int
}

func (st *storeState) plan(version int64) changesetPlan {
	if version == 1 {
		return changesetPlan{creates: st.gen.InitialSize}
	}

	deletes := int(st.gen.DeleteFraction * float64(st.gen.ChangePerVersion))
	updates := st.gen.ChangePerVersion - deletes
	st.createAccumulator += st.createsPerVersion
	clamped := int(st.createAccumulator)
	st.createAccumulator -= float64(clamped)

	return changesetPlan{
		deletes: deletes,
		updates: updates,
		creates: clamped + deletes,
	}
}

func (st *storeState) node(version int64, key string, value []byte, del bool) *api.Node {
	return &api.Node{
		StoreKey: st.gen.StoreKey,
		Block:    version,
		Key:      []byte(key),
		Value:    value,
		Delete:   del,
	}
}

func (st *storeState) genCreate(version int64) *api.Node {
	key := string(st.genBytes(st.gen.KeyMean, st.gen.KeyStdDev))
	for st.has(key) {
		key = string(st.genBytes(st.gen.KeyMean, st.gen.KeyStdDev))
	}
	st.existingKeys.Set(key)
	return st.node(version, key, st.genBytes(st.gen.ValueMean, st.gen.ValueStdDev), false)
}

func (st *storeState) genUpdate(version int64) (*api.Node, error) {
	n := st.existingKeys.Len()
	if n == 0 {
		return nil, ErrNoKeys
	}
	key, ok := st.existingKeys.GetAt(st.rng.IntN(n))
	if !ok {
		return nil, fmt.Errorf("logic error: no key to update")
	}
	return st.node(version, key, st.genBytes(st.gen.ValueMean, st.gen.ValueStdDev), false), nil
}

func (st *storeState) genDelete(version int64) (*api.Node, error) {
	n := st.existingKeys.Len()
	if n == 0 {
		return nil, ErrNoKeys
	}
	key, ok := st.existingKeys.GetAt(st.rng.IntN(n))
	if !ok {
		return nil, fmt.Errorf("logic error: no key to delete")
	}
	st.existingKeys.Delete(key)
	return st.node(version, key, nil, true), nil
}

func (st *storeState) has(key string) bool {
	_, ok := st.existingKeys.Get(key)
	return ok
}

func (st *storeState) changeset(version int64) ([]*api.Node, error) {
	p := st.plan(version)
	nodes := make([]*api.Node, 0, p.creates+p.updates+p.deletes)
	for i := 0; i < p.deletes; i++ {
		n, err := st.genDelete(version)
		if errors.Is(err, ErrNoKeys) {
			// nothing to delete, create instead
			n = st.genCreate(version)
		} else if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := 0; i < p.updates; i++ {
		n, err := st.genUpdate(version)
		if errors.Is(err, ErrNoKeys) {
			n = st.genCreate(version)
		} else if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	for i := 0; i < p.creates; i++ {
		nodes = append(nodes, st.genCreate(version))
	}
	return nodes, nil
}

func (st *storeState) genBytes(mean, stdDev int) []byte {
	length := int(st.rng.NormFloat64()*float64(stdDev) + float64(mean))
	// a wide std dev makes lengths below 1 common; draw again near the mean
	// instead of clamping so the distribution isn't skewed towards 1.
	if length < 1 {
		length = int(st.rng.NormFloat64()*float64(mean/3) + float64(mean))
		if length < 1 {
			length = 1
		}
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = byte(st.rng.IntN(256))
	}
	return b
}

// ChangesetIterator yields one Changeset per version, interleaving the nodes
// of all its stores.
type ChangesetIterator struct {
	versions  int64
	version   int64
	stores    []*storeState
	shuffle   *rand.Rand
	changeset *Changeset
}

func NewChangesetIterator(gens []ChangesetGenerator) (*ChangesetIterator, error) {
	if len(gens) == 0 {
		return nil, fmt.Errorf("must provide at least one generator")
	}

	versions := gens[0].Versions
	seen := map[string]bool{}
	itr := &ChangesetIterator{
		versions: int64(versions),
		shuffle:  rand.New(rand.NewPCG(uint64(gens[0].Seed), uint64(len(gens)))),
	}
	for _, gen := range gens {
		if gen.Versions != versions {
			return nil, fmt.Errorf("all generators must have the same number of versions")
		}
		if gen.FinalSize < gen.InitialSize {
			return nil, fmt.Errorf("store %s: final size must be greater than initial size", gen.StoreKey)
		}
		if seen[gen.StoreKey] {
			return nil, fmt.Errorf("duplicate store key %s", gen.StoreKey)
		}
		seen[gen.StoreKey] = true
		itr.stores = append(itr.stores, newStoreState(gen))
	}

	return itr, itr.Next()
}

func (itr *ChangesetIterator) Next() error {
	if itr.version >= itr.versions {
		itr.changeset = nil
		return nil
	}
	itr.version++

	cs := &Changeset{Version: itr.version}
	for _, st := range itr.stores {
		nodes, err := st.changeset(itr.version)
		if err != nil {
			return fmt.Errorf("error generating changeset for store %s version %d: %w",
				st.gen.StoreKey, itr.version, err)
		}
		cs.Nodes = append(cs.Nodes, nodes...)
	}
	itr.shuffle.Shuffle(len(cs.Nodes), func(i, j int) {
		cs.Nodes[i], cs.Nodes[j] = cs.Nodes[j], cs.Nodes[i]
	})
	itr.changeset = cs
	return nil
}

func (itr *ChangesetIterator) Valid() bool {
	return itr.changeset != nil
}

func (itr *ChangesetIterator) GetChangeset() *Changeset {
	return itr.changeset
}
