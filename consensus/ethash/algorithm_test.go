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
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

func TestSizeCalculations(t *testing.T) {
	// Verify the first handful of computed cache and dataset sizes against the
	// values the original size tables pin.
	wantCaches := []uint64{16776896, 16907456, 17039296, 17170112, 17301056}
	for epoch, want := range wantCaches {
		require.Equal(t, want, calcCacheSize(epoch), "cache epoch %d", epoch)
	}
	wantDatasets := []uint64{1073739904, 1082130304, 1090514816, 1098906752, 1107293056}
	for epoch, want := range wantDatasets {
		require.Equal(t, want, calcDatasetSize(epoch), "dataset epoch %d", epoch)
	}
}

func TestSeedHash(t *testing.T) {
	require.Equal(t, make([]byte, 32), seedHash(0))
	require.Equal(t, make([]byte, 32), seedHash(epochLength-1))
	require.Equal(t,
		hexutil.MustDecode("0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563"),
		seedHash(epochLength))
	require.Equal(t,
		hexutil.MustDecode("0x510e4e770828ddbf7f7b00ab00a9f6adaf81c0dc9cc85f1f8249c256942d61d9"),
		seedHash(2*epochLength))
}

func TestCacheGeneration(t *testing.T) {
	// Generate the same test cache twice, it has to be deterministic.
	first := make([]uint32, 1024/4)
	generateCache(first, 0, seedHash(1))

	second := make([]uint32, 1024/4)
	generateCache(second, 0, seedHash(1))

	require.Equal(t, first, second)
}

func TestHashimoto(t *testing.T) {
	// Create the verification cache and mining dataset of the test sizes
	cache := make([]uint32, 1024/4)
	generateCache(cache, 0, make([]byte, 32))

	dataset := make([]uint32, 32*1024/4)
	generateDataset(dataset, 0, cache)

	// Known working hash, nonce and outputs against both variants
	hash := hexutil.MustDecode("0xc9149cc0386e689d789a1c2f3d5d169a61a6218ed30e74414dc736e442ef3d1f")
	nonce := uint64(0xe360b6170c229d15)

	wantDigest := hexutil.MustDecode("0x47af990afa74cf47281fe85246e796e7963fce8e05c443d221aaf1ebaf238b1d")
	wantResult := hexutil.MustDecode("0xd3539235ee2e6f8db665c0a72169f55b7f6c605712330b778ec3944f0eb5a557")

	digest, result := hashimotoLight(32*1024, cache, hash, nonce)
	require.Equal(t, wantDigest, digest, "light digest")
	require.Equal(t, wantResult, result, "light result")

	digest, result = hashimotoFull(dataset, hash, nonce)
	require.Equal(t, wantDigest, digest, "full digest")
	require.Equal(t, wantResult, result, "full result")
}

func BenchmarkHashimotoLight(b *testing.B) {
	cache := make([]uint32, cacheSize(1)/4)
	generateCache(cache, 0, make([]byte, 32))

	hash := hexutil.MustDecode("0xc9149cc0386e689d789a1c2f3d5d169a61a6218ed30e74414dc736e442ef3d1f")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hashimotoLight(datasetSize(1), cache, hash, 0)
	}
}
