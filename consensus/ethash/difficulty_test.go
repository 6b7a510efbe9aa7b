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
	"github.com/hicommonwealth/ethrelay/params"
	"github.com/stretchr/testify/require"
)

func diffParent(number int64, time uint64, difficulty int64) *types.Header {
	return &types.Header{
		Number:     big.NewInt(number),
		Time:       time,
		Difficulty: big.NewInt(difficulty),
		UncleHash:  types.EmptyUncleHash,
	}
}

func TestCalcDifficultyFrontier(t *testing.T) {
	config := params.FrontierChainConfig

	// Fast block, difficulty rises by parent/2048
	parent := diffParent(0, 0, 131072)
	require.Equal(t, big.NewInt(131136), CalcDifficulty(config, 5, parent))

	// Slow block, difficulty would drop but is clamped at the minimum
	require.Equal(t, big.NewInt(131072), CalcDifficulty(config, 20, parent))

	// Above the minimum a slow block actually drops
	parent = diffParent(0, 0, 262144)
	require.Equal(t, big.NewInt(262016), CalcDifficulty(config, 20, parent))
}

func TestCalcDifficultyHomestead(t *testing.T) {
	config := &params.ChainConfig{ChainID: big.NewInt(1), HomesteadBlock: big.NewInt(0)}

	parent := diffParent(0, 0, 131072)

	// Under ten seconds the difficulty rises
	require.Equal(t, big.NewInt(131136), CalcDifficulty(config, 5, parent))

	// Between 10 and 20 seconds it stays put
	require.Equal(t, big.NewInt(131072), CalcDifficulty(config, 15, parent))

	// Over 20 seconds it drops, clamped at the minimum
	require.Equal(t, big.NewInt(131072), CalcDifficulty(config, 25, parent))

	parent = diffParent(0, 0, 262144)
	require.Equal(t, big.NewInt(262016), CalcDifficulty(config, 25, parent))
}

func TestCalcDifficultyByzantium(t *testing.T) {
	config := &params.ChainConfig{
		ChainID:        big.NewInt(1),
		HomesteadBlock: big.NewInt(0),
		ByzantiumBlock: big.NewInt(0),
	}

	// Canonical parents count once, uncle parents twice
	parent := diffParent(100, 0, 131072)
	require.Equal(t, big.NewInt(131136), CalcDifficulty(config, 5, parent))

	parent.UncleHash = common.HexToHash("0x01")
	require.Equal(t, big.NewInt(131200), CalcDifficulty(config, 5, parent))
}

func TestDifficultyBombDelay(t *testing.T) {
	config := &params.ChainConfig{
		ChainID:        big.NewInt(1),
		HomesteadBlock: big.NewInt(0),
		ByzantiumBlock: big.NewInt(0),
	}

	// Parent sits 200k blocks past the delayed bomb origin, so the
	// exponential term contributes 2^(2-2) = 1.
	parent := diffParent(3_199_999, 0, 131072)
	require.Equal(t, big.NewInt(131137), CalcDifficulty(config, 5, parent))

	// The same parent under Gray Glacier rules sees no bomb at all.
	require.Equal(t, big.NewInt(131136), CalcDifficulty(params.TestChainConfig, 5, parent))
}

func TestCalcDifficultyEraSelection(t *testing.T) {
	// The mainnet schedule must pick the formula of the era the CHILD block
	// lands in, not the parent's.
	config := params.MainnetChainConfig

	// Parent is the last pre-Homestead block. Frontier counts a 15 second
	// gap as slow, Homestead as neutral. At block 1.15M the undelayed bomb
	// contributes 2^(11-2) = 512 in both eras.
	parent := diffParent(config.HomesteadBlock.Int64()-1, 0, 262144)
	require.Equal(t, big.NewInt(262144+512), CalcDifficulty(config, 15, parent))

	parent = diffParent(config.HomesteadBlock.Int64()-2, 0, 262144)
	require.Equal(t, big.NewInt(262016+512), CalcDifficulty(config, 15, parent))
}
