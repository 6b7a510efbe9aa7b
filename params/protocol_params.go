// Copyright 2015 The go-ethereum Authors
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

package params

import "math/big"

const (
	// GasLimitBoundDivisor is the bound divisor of the gas limit, used in update calculations.
	GasLimitBoundDivisor uint64 = 1024

	// MinGasLimit is the minimum the gas limit may ever be.
	MinGasLimit uint64 = 5000

	// MaxGasLimit is the maximum the gas limit may ever be.
	MaxGasLimit uint64 = 0x7fffffffffffffff

	// MaximumExtraDataSize is the maximum size extra data may be after Genesis.
	MaximumExtraDataSize uint64 = 32
)

var (
	// MinimumDifficulty is the minimum that the difficulty may ever be.
	MinimumDifficulty = big.NewInt(131072)

	// DifficultyBoundDivisor is the bound divisor of the difficulty, used in the update calculations.
	DifficultyBoundDivisor = big.NewInt(2048)

	// DurationLimit is the decision boundary on the blocktime duration used to
	// determine whether difficulty should go up or not in the Frontier era.
	DurationLimit = big.NewInt(13)
)
