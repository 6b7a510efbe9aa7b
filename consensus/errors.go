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

package consensus

import "errors"

var (
	// ErrUnknownAncestor is returned when validating a header requires an
	// ancestor that is unknown.
	ErrUnknownAncestor = errors.New("unknown ancestor")

	// ErrFutureBlock is returned when a header's timestamp is ahead of the
	// current node time beyond the allowed clock drift.
	ErrFutureBlock = errors.New("block in the future")

	// ErrInvalidNumber is returned if a header's number is not equal to the
	// parent's plus one.
	ErrInvalidNumber = errors.New("invalid block number")

	// ErrKnownHeader is returned when a submitted header is already part of
	// the local chain.
	ErrKnownHeader = errors.New("header already known")

	// ErrInvalidDifficulty is returned if a header's difficulty does not match
	// the value mandated by the adjustment algorithm.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrInvalidPoW is returned if a header's proof-of-work seal does not meet
	// the declared difficulty target.
	ErrInvalidPoW = errors.New("invalid proof-of-work")

	// ErrProofRequired is returned by engines running in proof verification
	// mode when a header arrives without a seal proof attached.
	ErrProofRequired = errors.New("seal proof required")
)
