// Copyright 2018 The go-ethereum Authors
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

package rawdb

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/stretchr/testify/require"
)

func testHeader(number int64, extra string) *types.Header {
	return &types.Header{
		UncleHash:  types.EmptyUncleHash,
		Number:     big.NewInt(number),
		Time:       1_600_000_000,
		Difficulty: big.NewInt(131_072),
		GasLimit:   8_000_000,
		Extra:      []byte(extra),
	}
}

// Tests block header storage and retrieval operations.
func TestHeaderStorage(t *testing.T) {
	db := NewMemoryDatabase()

	header := testHeader(42, "test header")
	if entry := ReadHeader(db, header.Hash(), header.NumberU64()); entry != nil {
		t.Fatalf("Non existent header returned: %v", entry)
	}
	require.False(t, HasHeader(db, header.Hash(), header.NumberU64()))

	WriteHeader(db, header)
	entry := ReadHeader(db, header.Hash(), header.NumberU64())
	require.NotNil(t, entry)
	require.Equal(t, header.Hash(), entry.Hash())
	require.True(t, HasHeader(db, header.Hash(), header.NumberU64()))

	// The hash to number index is maintained alongside.
	number := ReadHeaderNumber(db, header.Hash())
	require.NotNil(t, number)
	require.Equal(t, header.NumberU64(), *number)

	DeleteHeader(db, header.Hash(), header.NumberU64())
	require.Nil(t, ReadHeader(db, header.Hash(), header.NumberU64()))
	require.Nil(t, ReadHeaderNumber(db, header.Hash()))
}

// Tests total difficulty storage and retrieval operations.
func TestTdStorage(t *testing.T) {
	db := NewMemoryDatabase()

	hash, td := common.HexToHash("0x01"), big.NewInt(314)
	require.Nil(t, ReadTd(db, hash, 0))

	WriteTd(db, hash, 0, td)
	require.Equal(t, td, ReadTd(db, hash, 0))

	DeleteTd(db, hash, 0)
	require.Nil(t, ReadTd(db, hash, 0))
}

func TestCanonicalMappingStorage(t *testing.T) {
	db := NewMemoryDatabase()

	hash, number := common.HexToHash("0x02"), uint64(314)
	require.Equal(t, common.Hash{}, ReadCanonicalHash(db, number))

	WriteCanonicalHash(db, hash, number)
	require.Equal(t, hash, ReadCanonicalHash(db, number))

	DeleteCanonicalHash(db, number)
	require.Equal(t, common.Hash{}, ReadCanonicalHash(db, number))
}

func TestHeadHeaderStorage(t *testing.T) {
	db := NewMemoryDatabase()

	require.Equal(t, common.Hash{}, ReadHeadHeaderHash(db))
	WriteHeadHeaderHash(db, common.HexToHash("0x03"))
	require.Equal(t, common.HexToHash("0x03"), ReadHeadHeaderHash(db))
}

// Tests that all sibling headers at one height are discovered by the prefix
// scan, and that other heights stay invisible to it.
func TestReadAllHashes(t *testing.T) {
	db := NewMemoryDatabase()

	siblings := []*types.Header{
		testHeader(7, "a"),
		testHeader(7, "b"),
		testHeader(7, "c"),
	}
	for _, header := range siblings {
		WriteHeader(db, header)
	}
	WriteHeader(db, testHeader(8, "d"))

	hashes := ReadAllHashes(db, 7)
	require.Len(t, hashes, 3)
	seen := make(map[common.Hash]bool)
	for _, hash := range hashes {
		seen[hash] = true
	}
	for _, header := range siblings {
		require.True(t, seen[header.Hash()], "missing sibling %x", header.Hash())
	}

	require.Len(t, ReadAllHashes(db, 8), 1)
	require.Empty(t, ReadAllHashes(db, 9))
}

func TestCheckpointStorage(t *testing.T) {
	db := NewMemoryDatabase()

	require.Nil(t, ReadCheckpoint(db))

	cp := &types.Checkpoint{Header: testHeader(100, "anchor"), TotalDifficulty: big.NewInt(10_000_000)}
	WriteCheckpoint(db, cp)

	stored := ReadCheckpoint(db)
	require.NotNil(t, stored)
	require.Equal(t, cp.Hash(), stored.Hash())
	require.Equal(t, cp.TotalDifficulty, stored.TotalDifficulty)
}

func TestPruneHeightStorage(t *testing.T) {
	db := NewMemoryDatabase()

	require.Zero(t, ReadPruneHeight(db))
	WritePruneHeight(db, 1234)
	require.Equal(t, uint64(1234), ReadPruneHeight(db))
}
