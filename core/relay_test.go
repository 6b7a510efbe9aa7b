package core

import (
	"math/big"
	"testing"
	"time"

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

func newTestRelay(t *testing.T, db ethdb.Database, engine consensus.Engine, finalityDepth uint64) *Relay {
	t.Helper()
	relay, err := NewRelay(db, engine, params.TestChainConfig, testAnchor(), finalityDepth, log.NewLogger("", "error"))
	require.NoError(t, err)
	return relay
}

func encode(t *testing.T, header *types.Header) []byte {
	t.Helper()
	raw, err := types.EncodeHeader(header)
	require.NoError(t, err)
	return raw
}

func TestSubmitExtendsChain(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)
	_, _, startTd := relay.CanonicalTip()

	headers := makeHeaders(relay.hc.CurrentHeader(), 3, 13, 'a')
	lastTd := startTd
	for _, header := range headers {
		res, err := relay.Submit(encode(t, header))
		require.NoError(t, err)
		require.Equal(t, StatusExtended, res.Status)
		require.Zero(t, res.ReorgDepth)
		require.Equal(t, header.Hash(), res.HeaderHash)
		require.Equal(t, header.Hash(), res.TipHash)
		require.Equal(t, header.NumberU64(), res.TipNumber)
		require.Equal(t, 1, res.TipTd.Cmp(lastTd), "tip total difficulty must strictly increase")
		lastTd = res.TipTd
	}
}

func TestSubmitDuplicate(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)

	header := makeHeaders(relay.hc.CurrentHeader(), 1, 13, 'a')[0]
	raw := encode(t, header)

	res, err := relay.Submit(raw)
	require.NoError(t, err)
	require.Equal(t, StatusExtended, res.Status)

	res, err = relay.Submit(raw)
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, res.Status)
	require.Equal(t, header.Hash(), res.TipHash, "duplicate must not move the tip")
}

func TestSubmitOrphan(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)

	orphan := makeHeaders(relay.hc.CurrentHeader(), 2, 13, 'a')[1]
	_, err := relay.Submit(encode(t, orphan))
	require.ErrorIs(t, err, ErrOrphanHeader)
}

func TestSubmitDecodeErrors(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)

	_, err := relay.Submit([]byte{0xde, 0xad, 0xbe, 0xef})
	require.ErrorIs(t, err, ErrDecode)

	header := makeHeaders(relay.hc.CurrentHeader(), 1, 13, 'a')[0]
	raw := encode(t, header)

	_, err = relay.Submit(append(raw, 0x00))
	require.ErrorIs(t, err, ErrDecode, "trailing garbage must be rejected")

	_, err = relay.Submit(raw[:len(raw)-1])
	require.ErrorIs(t, err, ErrDecode, "truncated input must be rejected")
}

func TestSubmitDifficultyMismatch(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)

	header := makeHeaders(relay.hc.CurrentHeader(), 1, 13, 'a')[0]
	header.Difficulty = new(big.Int).Add(header.Difficulty, common.Big1)
	_, err := relay.Submit(encode(t, header))
	require.ErrorIs(t, err, ErrDifficultyMismatch)
}

func TestSubmitPowRejected(t *testing.T) {
	anchor := testAnchor()
	engine := ethash.NewFakeFailer(anchor.Number() + 1)
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), engine, 0)

	header := makeHeaders(relay.hc.CurrentHeader(), 1, 13, 'a')[0]
	_, err := relay.Submit(encode(t, header))
	require.ErrorIs(t, err, ErrPowInvalid)
	require.ErrorIs(t, err, consensus.ErrInvalidPoW)
}

func TestSubmitFutureHeader(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)
	parent := relay.hc.CurrentHeader()

	future := uint64(time.Now().Unix()) + 3600
	header := &types.Header{
		ParentHash: parent.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		Time:       future,
		Difficulty: ethash.CalcDifficulty(params.TestChainConfig, future, parent),
		GasLimit:   testGasLimit,
	}
	_, err := relay.Submit(encode(t, header))
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestSubmitReorg(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)
	anchor := relay.hc.CurrentHeader()

	for _, header := range makeHeaders(anchor, 2, 13, 'a') {
		res, err := relay.Submit(encode(t, header))
		require.NoError(t, err)
		require.Equal(t, StatusExtended, res.Status)
	}

	b1 := makeHeaders(anchor, 1, 20, 'b')[0]
	res, err := relay.Submit(encode(t, b1))
	require.NoError(t, err)
	require.Equal(t, StatusSideChain, res.Status)

	b2 := makeHeaders(b1, 1, 1, 'b')[0]
	res, err = relay.Submit(encode(t, b2))
	require.NoError(t, err)
	require.Equal(t, StatusSideChain, res.Status)

	b3 := makeHeaders(b2, 1, 1, 'b')[0]
	res, err = relay.Submit(encode(t, b3))
	require.NoError(t, err)
	require.Equal(t, StatusReorged, res.Status)
	require.Equal(t, uint64(2), res.ReorgDepth)
	require.Equal(t, b3.Hash(), res.TipHash)

	require.True(t, relay.IsAncestor(b1.Hash(), b3.Hash()))
	require.Equal(t, b1.Hash(), relay.HeaderByNumber(b1.NumberU64()).Hash())
}

func TestSubmitPrunesStaleBranches(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 1)
	anchor := relay.hc.CurrentHeader()

	branchA := makeHeaders(anchor, 2, 13, 'a')
	for _, header := range branchA {
		_, err := relay.Submit(encode(t, header))
		require.NoError(t, err)
	}

	b1 := makeHeaders(anchor, 1, 20, 'b')[0]
	b2 := makeHeaders(b1, 1, 1, 'b')[0]
	b3 := makeHeaders(b2, 1, 1, 'b')[0]
	for _, header := range []*types.Header{b1, b2, b3} {
		_, err := relay.Submit(encode(t, header))
		require.NoError(t, err)
	}

	// The reorg moved the head to height anchor+3 with a finality depth of
	// one, so the displaced header below the horizon is gone for good.
	require.Nil(t, relay.HeaderByHash(branchA[0].Hash()))
	require.NotNil(t, relay.HeaderByHash(branchA[1].Hash()))

	// A child of the pruned header is an orphan now.
	regrown := makeHeaders(branchA[0], 1, 13, 'c')[0]
	_, err := relay.Submit(encode(t, regrown))
	require.ErrorIs(t, err, ErrOrphanHeader)
}

func TestSubmitWithProofValidation(t *testing.T) {
	relay := newTestRelay(t, rawdb.NewMemoryDatabase(), ethash.NewFaker(), 0)

	header := makeHeaders(relay.hc.CurrentHeader(), 1, 13, 'a')[0]
	raw := encode(t, header)

	_, err := relay.SubmitWithProof(raw, nil)
	require.ErrorIs(t, err, ErrProofRequired)

	_, err = relay.SubmitWithProof(raw, []byte{0xde, 0xad})
	require.ErrorIs(t, err, ErrInvalidHeader, "undecodable proof must be rejected")
}

func TestRelayRestartKeepsTip(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	relay := newTestRelay(t, db, ethash.NewFaker(), 0)

	var tip common.Hash
	for _, header := range makeHeaders(relay.hc.CurrentHeader(), 3, 13, 'a') {
		res, err := relay.Submit(encode(t, header))
		require.NoError(t, err)
		tip = res.TipHash
	}

	reopened := newTestRelay(t, db, ethash.NewFaker(), 0)
	hash, number, td := reopened.CanonicalTip()
	require.Equal(t, tip, hash)
	require.Equal(t, uint64(103), number)
	require.NotNil(t, td)
}
