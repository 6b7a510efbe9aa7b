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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/stretchr/testify/require"
)

// sealedTestHeader builds a header whose mix digest matches its seal under the
// test-sized dataset. Unit difficulty makes any PoW output meet the target.
func sealedTestHeader(t *testing.T, engine *Ethash, nonce uint64) *types.Header {
	t.Helper()

	header := &types.Header{
		Number:     big.NewInt(1),
		Difficulty: big.NewInt(1),
		Time:       1,
		GasLimit:   5000,
		Nonce:      types.EncodeNonce(nonce),
	}
	cache := engine.cache(header.NumberU64())
	digest, _ := hashimotoLight(32*1024, cache.cache, engine.SealHash(header).Bytes(), header.Nonce.Uint64())
	header.MixDigest = common.BytesToHash(digest)
	return header
}

func TestDatasetProofRoundTrip(t *testing.T) {
	engine := NewTester()
	defer engine.Close()

	header := sealedTestHeader(t, engine, 0x2021)
	engine.PinEpochRoot(0, engine.EpochRoot(0))

	proof, err := engine.GenerateDatasetProof(header)
	require.NoError(t, err)
	require.Len(t, proof.Lookups, loopAccesses)

	require.NoError(t, engine.VerifyHeaderWithProof(header, proof))

	// The proof must survive its wire encoding.
	enc, err := proof.EncodeRLP()
	require.NoError(t, err)

	decoded, err := DecodeDatasetProof(enc)
	require.NoError(t, err)
	require.NoError(t, engine.VerifyHeaderWithProof(header, decoded))
}

func TestDatasetProofRejectsTampering(t *testing.T) {
	engine := NewTester()
	defer engine.Close()

	header := sealedTestHeader(t, engine, 0x0badc0de)
	engine.PinEpochRoot(0, engine.EpochRoot(0))

	proof, err := engine.GenerateDatasetProof(header)
	require.NoError(t, err)

	// Flipping a bit in any leaf must break its branch.
	proof.Lookups[7].Data[0] ^= 0x01
	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, proof), errProofBranch)
	proof.Lookups[7].Data[0] ^= 0x01
	require.NoError(t, engine.VerifyHeaderWithProof(header, proof))

	// A leaf swapped in from the wrong position is caught by the index check.
	proof.Lookups[3], proof.Lookups[4] = proof.Lookups[4], proof.Lookups[3]
	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, proof), errProofLeafIndex)
	proof.Lookups[3], proof.Lookups[4] = proof.Lookups[4], proof.Lookups[3]

	// Truncated proofs are rejected outright.
	short := &DatasetProof{Epoch: proof.Epoch, Lookups: proof.Lookups[:loopAccesses-1]}
	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, short), errProofLookupCount)

	// As are proofs for another epoch.
	wrongEpoch := &DatasetProof{Epoch: proof.Epoch + 1, Lookups: proof.Lookups}
	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, wrongEpoch), errProofEpochMismatch)

	// A sealed header with a corrupted mix digest fails even with a valid proof.
	header.MixDigest[0] ^= 0x01
	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, proof), errInvalidMixDigest)
}

func TestParseEpochRoots(t *testing.T) {
	roots, err := ParseEpochRoots([]byte(`{
		"0": "0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563",
		"317": "0x0000000000000000000000000000000000000000000000000000000000000001"
	}`))
	require.NoError(t, err)
	require.Len(t, roots, 2)
	require.Equal(t, common.HexToHash("0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563"), roots[0])
	require.Equal(t, common.HexToHash("0x01"), roots[317])

	_, err = ParseEpochRoots([]byte(`{"epoch-one": "0x0000000000000000000000000000000000000000000000000000000000000001"}`))
	require.Error(t, err, "non-numeric epoch keys must be rejected")

	_, err = ParseEpochRoots([]byte(`{"0": "not a hash"}`))
	require.Error(t, err, "malformed roots must be rejected")
}

func TestDatasetProofNeedsPinnedRoot(t *testing.T) {
	engine := NewTester()
	defer engine.Close()

	header := sealedTestHeader(t, engine, 0x55)
	proof, err := engine.GenerateDatasetProof(header)
	require.NoError(t, err)

	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, proof), errUnknownEpochRoot)

	// Pinning a wrong root makes every branch fail.
	engine.PinEpochRoot(0, common.HexToHash("0xdead"))
	require.ErrorIs(t, engine.VerifyHeaderWithProof(header, proof), errProofBranch)
}
