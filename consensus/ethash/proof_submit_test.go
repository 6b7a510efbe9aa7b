// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package ethash

import (
	"math/big"
	"runtime"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/core"
	"github.com/hicommonwealth/ethrelay/core/rawdb"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/log"
	"github.com/hicommonwealth/ethrelay/params"
	"github.com/stretchr/testify/require"
)

// sealHeader mines the header against the test-sized dataset: it searches for
// a nonce whose hashimoto result meets the difficulty target and fills in the
// seal fields. The search is deterministic, so the test vectors are stable.
func sealHeader(t *testing.T, engine *Ethash, header *types.Header) {
	t.Helper()

	var (
		target  = new(big.Int).Div(new(big.Int).Lsh(common.Big1, 256), header.Difficulty)
		current = engine.dataset(header.NumberU64(), false)
		seal    = engine.SealHash(header).Bytes()
	)
	for nonce := uint64(0); nonce < 1<<24; nonce++ {
		digest, result := hashimotoFull(current.dataset, seal, nonce)
		if new(big.Int).SetBytes(result).Cmp(target) <= 0 {
			header.Nonce = types.EncodeNonce(nonce)
			header.MixDigest = common.BytesToHash(digest)
			runtime.KeepAlive(current)
			return
		}
	}
	t.Fatal("no valid nonce below the search bound")
}

// The full submission path for proved headers: a sealed header and its
// dataset proof go through the relay and land on the canonical chain, with
// only a pinned epoch root on the verification side.
func TestSubmitProvedHeader(t *testing.T) {
	engine := NewTester()
	defer engine.Close()
	engine.PinEpochRoot(0, engine.EpochRoot(0))

	anchor := &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(100),
		Time:       1_600_000_000,
		Difficulty: big.NewInt(131_072),
		GasLimit:   8_000_000,
		Extra:      []byte("anchor"),
	}
	checkpoint := &types.Checkpoint{Header: anchor, TotalDifficulty: big.NewInt(10_000_000)}

	relay, err := core.NewRelay(rawdb.NewMemoryDatabase(), engine, params.TestChainConfig, checkpoint, 0, log.NewLogger("", "error"))
	require.NoError(t, err)

	header := &types.Header{
		ParentHash: anchor.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(101),
		Time:       anchor.Time + 13,
		Difficulty: CalcDifficulty(params.TestChainConfig, anchor.Time+13, anchor),
		GasLimit:   8_000_000,
	}
	sealHeader(t, engine, header)

	proof, err := engine.GenerateDatasetProof(header)
	require.NoError(t, err)
	proofRLP, err := proof.EncodeRLP()
	require.NoError(t, err)
	raw, err := types.EncodeHeader(header)
	require.NoError(t, err)

	// A tampered proof must not get through.
	proof.Lookups[0].Data[0] ^= 0x01
	badRLP, err := proof.EncodeRLP()
	require.NoError(t, err)
	_, err = relay.SubmitWithProof(raw, badRLP)
	require.ErrorIs(t, err, core.ErrInvalidHeader)

	res, err := relay.SubmitWithProof(raw, proofRLP)
	require.NoError(t, err)
	require.Equal(t, core.StatusExtended, res.Status)
	require.Equal(t, header.Hash(), res.TipHash)
	require.Equal(t, header.NumberU64(), res.TipNumber)
}
