// Copyright 2019 The go-ethereum Authors
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

package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Checkpoint is the trust anchor the header DAG is rooted at. Headers before
// the checkpoint are never verified; its total difficulty seeds the
// cumulative difficulty bookkeeping of everything built on top of it.
//
// The full anchor header is carried (not just its hash) because validating
// the first child requires the anchor's timestamp and difficulty.
type Checkpoint struct {
	Header          *Header
	TotalDifficulty *big.Int
}

// Hash returns the content hash of the anchor header.
func (cp *Checkpoint) Hash() common.Hash {
	return cp.Header.Hash()
}

// Number returns the height of the anchor header.
func (cp *Checkpoint) Number() uint64 {
	return cp.Header.NumberU64()
}

// checkpointJSON is the on-disk trust anchor format. The header travels as
// hex encoded canonical RLP, so the file stays bindable to the header's own
// content hash.
type checkpointJSON struct {
	HeaderRLP       hexutil.Bytes `json:"headerRlp"`
	TotalDifficulty *hexutil.Big  `json:"totalDifficulty"`
}

// ParseCheckpoint decodes a JSON trust anchor file.
func ParseCheckpoint(data []byte) (*Checkpoint, error) {
	var file checkpointJSON
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid checkpoint file: %w", err)
	}
	header, err := DecodeHeader(file.HeaderRLP)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint header: %w", err)
	}
	cp := &Checkpoint{Header: header}
	if file.TotalDifficulty != nil {
		cp.TotalDifficulty = file.TotalDifficulty.ToInt()
	}
	if err := cp.Sanity(); err != nil {
		return nil, err
	}
	return cp, nil
}

// EncodeCheckpoint renders a checkpoint in the JSON trust anchor format.
func EncodeCheckpoint(cp *Checkpoint) ([]byte, error) {
	if err := cp.Sanity(); err != nil {
		return nil, err
	}
	raw, err := EncodeHeader(cp.Header)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(&checkpointJSON{
		HeaderRLP:       raw,
		TotalDifficulty: (*hexutil.Big)(cp.TotalDifficulty),
	}, "", "  ")
}

// Sanity checks the checkpoint fields are populated and coherent.
func (cp *Checkpoint) Sanity() error {
	if cp.Header == nil {
		return fmt.Errorf("checkpoint missing header")
	}
	if err := cp.Header.SanityCheck(); err != nil {
		return fmt.Errorf("checkpoint header: %w", err)
	}
	if cp.TotalDifficulty == nil || cp.TotalDifficulty.Sign() <= 0 {
		return fmt.Errorf("checkpoint missing total difficulty")
	}
	if cp.TotalDifficulty.Cmp(cp.Header.Difficulty) < 0 {
		return fmt.Errorf("checkpoint total difficulty %v below own difficulty %v",
			cp.TotalDifficulty, cp.Header.Difficulty)
	}
	return nil
}
