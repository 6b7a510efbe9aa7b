package core

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/consensus"
	"github.com/hicommonwealth/ethrelay/consensus/ethash"
	"github.com/hicommonwealth/ethrelay/core/rawdb"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/ethdb"
	"github.com/hicommonwealth/ethrelay/log"
	"github.com/hicommonwealth/ethrelay/params"
	"github.com/stretchr/testify/require"
)

const testGasLimit = 8_000_000

func testAnchor() *types.Checkpoint {
	header := &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(100),
		Time:       1_600_000_000,
		Difficulty: big.NewInt(131_072),
		GasLimit:   testGasLimit,
		Extra:      []byte("anchor"),
	}
	return &types.Checkpoint{Header: header, TotalDifficulty: big.NewInt(10_000_000)}
}

// makeHeaders derives n consecutive children of parent with the exact
// difficulty the retarget rules demand. timeDelta shapes the branch weight
// (small deltas raise difficulty, large ones lower it) and seed keeps
// competing branches from colliding on identical content.
func makeHeaders(parent *types.Header, n int, timeDelta uint64, seed byte) []*types.Header {
	headers := make([]*types.Header, 0, n)
	for i := 0; i < n; i++ {
		header := &types.Header{
			ParentHash: parent.Hash(),
			UncleHash:  types.EmptyUncleHash,
			Number:     new(big.Int).Add(parent.Number, common.Big1),
			Time:       parent.Time + timeDelta,
			Difficulty: ethash.CalcDifficulty(params.TestChainConfig, parent.Time+timeDelta, parent),
			GasLimit:   testGasLimit,
			Extra:      []byte{seed},
		}
		headers = append(headers, header)
		parent = header
	}
	return headers
}

func newTestChain(t *testing.T, db ethdb.Database) *HeaderChain {
	t.Helper()
	hc, err := NewHeaderChain(db, ethash.NewFaker(), params.TestChainConfig, testAnchor(), log.NewLogger("", "error"))
	require.NoError(t, err)
	return hc
}

func TestHeaderChainSeedsAnchor(t *testing.T) {
	anchor := testAnchor()
	hc := newTestChain(t, rawdb.NewMemoryDatabase())

	require.Equal(t, anchor.Hash(), hc.CurrentHeader().Hash())
	require.Equal(t, anchor.Hash(), hc.GetCanonicalHash(anchor.Number()))
	require.Equal(t, anchor.TotalDifficulty, hc.GetTd(anchor.Hash(), anchor.Number()))
	require.NotNil(t, hc.GetHeaderByNumber(anchor.Number()))
}

func TestHeaderChainRequiresCheckpoint(t *testing.T) {
	_, err := NewHeaderChain(rawdb.NewMemoryDatabase(), ethash.NewFaker(), params.TestChainConfig, nil, log.NewLogger("", "error"))
	require.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestHeaderChainCheckpointMismatch(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	newTestChain(t, db)

	other := testAnchor()
	other.Header.Number = big.NewInt(200)
	_, err := NewHeaderChain(db, ethash.NewFaker(), params.TestChainConfig, other, log.NewLogger("", "error"))
	require.ErrorIs(t, err, ErrCheckpointMismatch)
}

func TestHeaderChainRestart(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	hc := newTestChain(t, db)

	headers := makeHeaders(hc.CurrentHeader(), 3, 13, 'a')
	for _, header := range headers {
		_, err := hc.WriteHeader(header)
		require.NoError(t, err)
	}
	tip := hc.CurrentHeader()

	// Reopen with the same anchor and with no anchor at all; the head must
	// be restored from disk either way.
	reopened := newTestChain(t, db)
	require.Equal(t, tip.Hash(), reopened.CurrentHeader().Hash())

	reopened, err := NewHeaderChain(db, ethash.NewFaker(), params.TestChainConfig, nil, log.NewLogger("", "error"))
	require.NoError(t, err)
	require.Equal(t, tip.Hash(), reopened.CurrentHeader().Hash())
	require.Equal(t, tip.NumberU64(), reopened.CurrentHeader().NumberU64())
}

func TestWriteHeaderExtend(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())
	anchor := hc.Checkpoint()

	lastTd := new(big.Int).Set(anchor.TotalDifficulty)
	for _, header := range makeHeaders(hc.CurrentHeader(), 3, 13, 'a') {
		res, err := hc.WriteHeader(header)
		require.NoError(t, err)
		require.Equal(t, CanonStatTy, res.Status)
		require.Zero(t, res.ReorgDepth)
		require.Equal(t, header.Hash(), hc.CurrentHeader().Hash())

		td := hc.GetTd(header.Hash(), header.NumberU64())
		require.Equal(t, 1, td.Cmp(lastTd), "total difficulty must strictly increase")
		lastTd = td
	}
}

func TestWriteHeaderUnknownParent(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())

	orphan := makeHeaders(hc.CurrentHeader(), 2, 13, 'a')[1]
	_, err := hc.WriteHeader(orphan)
	require.ErrorIs(t, err, consensus.ErrUnknownAncestor)
}

func TestWriteHeaderKnown(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())

	header := makeHeaders(hc.CurrentHeader(), 1, 13, 'a')[0]
	_, err := hc.WriteHeader(header)
	require.NoError(t, err)

	_, err = hc.WriteHeader(header)
	require.ErrorIs(t, err, consensus.ErrKnownHeader)
	require.Equal(t, header.Hash(), hc.CurrentHeader().Hash(), "rejected rewrite must not move the head")
}

func TestHeaderChainDatabaseVersion(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	newTestChain(t, db)

	version := rawdb.ReadDatabaseVersion(db)
	require.NotNil(t, version)
	require.Equal(t, uint64(chainDBVersion), *version)

	// A store written by an incompatible schema must be refused.
	rawdb.WriteDatabaseVersion(db, chainDBVersion+1)
	_, err := NewHeaderChain(db, ethash.NewFaker(), params.TestChainConfig, nil, log.NewLogger("", "error"))
	require.Error(t, err)
}

func TestWriteHeaderReorg(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())
	anchor := hc.CurrentHeader()

	// Branch A: two quick headers that become canonical.
	branchA := makeHeaders(anchor, 2, 13, 'a')
	for _, header := range branchA {
		res, err := hc.WriteHeader(header)
		require.NoError(t, err)
		require.Equal(t, CanonStatTy, res.Status)
	}

	// Branch B starts slower (lower difficulty, lower cumulative weight)
	// and stays a side chain until its third header overtakes branch A.
	b1 := makeHeaders(anchor, 1, 20, 'b')[0]
	res, err := hc.WriteHeader(b1)
	require.NoError(t, err)
	require.Equal(t, SideStatTy, res.Status)

	b2 := makeHeaders(b1, 1, 1, 'b')[0]
	res, err = hc.WriteHeader(b2)
	require.NoError(t, err)
	require.Equal(t, SideStatTy, res.Status)

	b3 := makeHeaders(b2, 1, 1, 'b')[0]
	res, err = hc.WriteHeader(b3)
	require.NoError(t, err)
	require.Equal(t, CanonStatTy, res.Status)
	require.Equal(t, uint64(2), res.ReorgDepth)

	// The canonical index now follows branch B end to end.
	require.Equal(t, b3.Hash(), hc.CurrentHeader().Hash())
	require.Equal(t, b1.Hash(), hc.GetCanonicalHash(b1.NumberU64()))
	require.Equal(t, b2.Hash(), hc.GetCanonicalHash(b2.NumberU64()))
	require.Equal(t, b3.Hash(), hc.GetCanonicalHash(b3.NumberU64()))
	require.Equal(t, common.Hash{}, hc.GetCanonicalHash(b3.NumberU64()+1))

	// Displaced headers stay addressable by hash.
	require.NotNil(t, hc.GetHeaderByHash(branchA[0].Hash()))
	require.NotNil(t, hc.GetHeaderByHash(branchA[1].Hash()))
}

func TestWriteHeaderEqualTdTieBreak(t *testing.T) {
	anchor := testAnchor()
	x := makeHeaders(anchor.Header, 1, 13, 'x')[0]
	y := makeHeaders(anchor.Header, 1, 13, 'y')[0]
	require.Equal(t, x.Difficulty, y.Difficulty)

	winner, loser := x, y
	if bytes.Compare(y.Hash().Bytes(), x.Hash().Bytes()) < 0 {
		winner, loser = y, x
	}

	// Winner first: the loser stays a side header.
	hc := newTestChain(t, rawdb.NewMemoryDatabase())
	_, err := hc.WriteHeader(winner)
	require.NoError(t, err)
	res, err := hc.WriteHeader(loser)
	require.NoError(t, err)
	require.Equal(t, SideStatTy, res.Status)
	require.Equal(t, winner.Hash(), hc.CurrentHeader().Hash())

	// Loser first: the winner displaces it. Same head either way.
	hc = newTestChain(t, rawdb.NewMemoryDatabase())
	_, err = hc.WriteHeader(loser)
	require.NoError(t, err)
	res, err = hc.WriteHeader(winner)
	require.NoError(t, err)
	require.Equal(t, CanonStatTy, res.Status)
	require.Equal(t, uint64(1), res.ReorgDepth)
	require.Equal(t, winner.Hash(), hc.CurrentHeader().Hash())
}

func TestPrune(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())
	anchor := hc.CurrentHeader()

	canonical := makeHeaders(anchor, 4, 13, 'a')
	for _, header := range canonical {
		_, err := hc.WriteHeader(header)
		require.NoError(t, err)
	}
	stale := makeHeaders(anchor, 1, 20, 'b')[0]
	_, err := hc.WriteHeader(stale)
	require.NoError(t, err)

	// Horizon is head-2, so the stale sibling at head-3 goes away.
	removed, err := hc.Prune(2)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	require.Nil(t, hc.GetHeaderByHash(stale.Hash()))
	require.Nil(t, hc.GetTd(stale.Hash(), stale.NumberU64()))
	for _, header := range canonical {
		require.NotNil(t, hc.GetHeaderByHash(header.Hash()))
	}

	// A second pass finds nothing new.
	removed, err = hc.Prune(2)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestIsAncestor(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())
	anchor := hc.CurrentHeader()

	branchA := makeHeaders(anchor, 3, 13, 'a')
	for _, header := range branchA {
		_, err := hc.WriteHeader(header)
		require.NoError(t, err)
	}
	side := makeHeaders(anchor, 2, 20, 'b')
	for _, header := range side {
		_, err := hc.WriteHeader(header)
		require.NoError(t, err)
	}

	require.True(t, hc.IsAncestor(anchor.Hash(), branchA[2].Hash()))
	require.True(t, hc.IsAncestor(branchA[0].Hash(), branchA[2].Hash()))
	require.True(t, hc.IsAncestor(branchA[2].Hash(), branchA[2].Hash()))
	require.True(t, hc.IsAncestor(side[0].Hash(), side[1].Hash()))
	require.True(t, hc.IsAncestor(anchor.Hash(), side[1].Hash()))

	require.False(t, hc.IsAncestor(side[0].Hash(), branchA[2].Hash()))
	require.False(t, hc.IsAncestor(branchA[0].Hash(), side[1].Hash()))
	require.False(t, hc.IsAncestor(branchA[2].Hash(), branchA[0].Hash()))
	require.False(t, hc.IsAncestor(common.HexToHash("0xdead"), branchA[2].Hash()))
}

func TestAncestors(t *testing.T) {
	hc := newTestChain(t, rawdb.NewMemoryDatabase())
	anchor := hc.CurrentHeader()

	headers := makeHeaders(anchor, 3, 13, 'a')
	for _, header := range headers {
		_, err := hc.WriteHeader(header)
		require.NoError(t, err)
	}

	ancestors := hc.Ancestors(headers[2].Hash(), 10)
	require.Len(t, ancestors, 3, "walk must stop at the anchor")
	require.Equal(t, headers[1].Hash(), ancestors[0].Hash())
	require.Equal(t, headers[0].Hash(), ancestors[1].Hash())
	require.Equal(t, anchor.Hash(), ancestors[2].Hash())

	ancestors = hc.Ancestors(headers[2].Hash(), 1)
	require.Len(t, ancestors, 1)
	require.Equal(t, headers[1].Hash(), ancestors[0].Hash())

	require.Nil(t, hc.Ancestors(common.HexToHash("0xdead"), 10))
}
