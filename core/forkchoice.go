// Copyright 2021 The go-ethereum Authors
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

package core

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/core/types"
)

// TdReader is the slice of chain access the fork chooser needs.
type TdReader interface {
	// GetTd returns the total difficulty of a stored header.
	GetTd(hash common.Hash, number uint64) *big.Int
}

// ForkChoice is the fork chooser based on the highest total difficulty of the
// chain. Ties are broken on the lower header hash, so that independent
// verifiers fed the same submissions always agree on the canonical chain
// regardless of arrival order.
type ForkChoice struct {
	chain TdReader
}

func NewForkChoice(chain TdReader) *ForkChoice {
	return &ForkChoice{chain: chain}
}

// ReorgNeeded returns whether the reorg should be applied based on the given
// external header and its total difficulty.
func (f *ForkChoice) ReorgNeeded(current *types.Header, extern *types.Header, externTd *big.Int) (bool, error) {
	localTd := f.chain.GetTd(current.Hash(), current.NumberU64())
	if localTd == nil {
		return false, errors.New("missing td for canonical head")
	}
	if diff := externTd.Cmp(localTd); diff != 0 {
		return diff > 0, nil
	}
	// Equal total difficulty: the lower hash wins. Byte comparison of the
	// digests gives a total order every verifier computes identically.
	externHash, currentHash := extern.Hash(), current.Hash()
	return bytes.Compare(externHash[:], currentHash[:]) < 0, nil
}
