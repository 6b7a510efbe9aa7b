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

// Package consensus defines the interfaces for proof-of-work header verification.
package consensus

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/params"
)

// ChainHeaderReader defines a small collection of methods needed to access the local
// header chain during header verification.
type ChainHeaderReader interface {
	// Config retrieves the chain's chain configuration.
	Config() *params.ChainConfig

	// CurrentHeader retrieves the current header from the local chain.
	CurrentHeader() *types.Header

	// GetHeader retrieves a header from the database by hash and number.
	GetHeader(hash common.Hash, number uint64) *types.Header

	// GetHeaderByNumber retrieves a header from the database by number.
	GetHeaderByNumber(number uint64) *types.Header

	// GetHeaderByHash retrieves a header from the database by its hash.
	GetHeaderByHash(hash common.Hash) *types.Header

	// GetTd retrieves the total difficulty of a stored header.
	GetTd(hash common.Hash, number uint64) *big.Int
}

// Engine is an algorithm agnostic consensus engine verifying externally
// produced headers.
type Engine interface {
	// VerifyHeader checks whether a header conforms to the consensus rules of
	// the engine, including the validity of the embedded seal.
	VerifyHeader(chain ChainHeaderReader, header *types.Header) error

	// VerifyHeaders is similar to VerifyHeader, but verifies a batch of headers
	// concurrently. The method returns a quit channel to abort the operations and
	// a results channel to retrieve the async verifications (the order is that of
	// the input slice).
	VerifyHeaders(chain ChainHeaderReader, headers []*types.Header) (chan<- struct{}, <-chan error)

	// VerifySeal checks that the proof-of-work embedded in the header satisfies
	// the header's declared difficulty.
	VerifySeal(header *types.Header) error

	// CalcDifficulty is the difficulty adjustment algorithm. It returns the
	// difficulty that a new block should have given the parent header.
	CalcDifficulty(chain ChainHeaderReader, time uint64, parent *types.Header) *big.Int

	// SealHash returns the hash of a header prior to it being sealed.
	SealHash(header *types.Header) common.Hash

	// Close terminates any background threads maintained by the consensus engine.
	Close() error
}
