// Copyright 2014 The go-ethereum Authors
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

import "errors"

var (
	// ErrNoCheckpoint is returned when the database holds no trust anchor and
	// none was supplied at construction.
	ErrNoCheckpoint = errors.New("no checkpoint anchor available")

	// ErrCheckpointMismatch is returned when the configured trust anchor
	// disagrees with the one already persisted in the database.
	ErrCheckpointMismatch = errors.New("checkpoint mismatch with stored chain")

	// ErrDecode is a permanent rejection of a submission whose bytes do not
	// form a well formed header.
	ErrDecode = errors.New("malformed header bytes")

	// ErrOrphanHeader rejects a header whose parent is not in the store. The
	// submitter should provide the missing ancestors first and retry.
	ErrOrphanHeader = errors.New("orphan header")

	// ErrDifficultyMismatch is a permanent rejection of a header whose declared
	// difficulty differs from the era formula's expectation.
	ErrDifficultyMismatch = errors.New("difficulty mismatch")

	// ErrPowInvalid is a permanent rejection of a header whose seal does not
	// satisfy its declared difficulty.
	ErrPowInvalid = errors.New("invalid proof-of-work")

	// ErrInvalidHeader is a permanent rejection of a header violating a
	// structural consensus rule other than difficulty or seal.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrProofRequired is returned when a proof verifying engine receives a
	// submission without a dataset proof attached.
	ErrProofRequired = errors.New("dataset proof required")
)
