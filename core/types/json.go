// Copyright 2016 The go-ethereum Authors
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
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// headerMarshaling is the JSON wire shape of a header. All numeric and byte
// fields travel hex encoded, matching the Ethereum RPC conventions.
type headerMarshaling struct {
	ParentHash  common.Hash     `json:"parentHash"`
	UncleHash   common.Hash     `json:"sha3Uncles"`
	Coinbase    common.Address  `json:"miner"`
	Root        common.Hash     `json:"stateRoot"`
	TxHash      common.Hash     `json:"transactionsRoot"`
	ReceiptHash common.Hash     `json:"receiptsRoot"`
	Bloom       Bloom           `json:"logsBloom"`
	Difficulty  *hexutil.Big    `json:"difficulty"`
	Number      *hexutil.Big    `json:"number"`
	GasLimit    *hexutil.Uint64 `json:"gasLimit"`
	GasUsed     *hexutil.Uint64 `json:"gasUsed"`
	Time        *hexutil.Uint64 `json:"timestamp"`
	Extra       hexutil.Bytes   `json:"extraData"`
	MixDigest   common.Hash     `json:"mixHash"`
	Nonce       BlockNonce      `json:"nonce"`
	Hash        *common.Hash    `json:"hash,omitempty"`
}

// MarshalJSON marshals the header with hex encoded fields. The content hash
// is included as a convenience for API consumers; it is ignored on decode.
func (h *Header) MarshalJSON() ([]byte, error) {
	hash := h.Hash()
	enc := headerMarshaling{
		ParentHash:  h.ParentHash,
		UncleHash:   h.UncleHash,
		Coinbase:    h.Coinbase,
		Root:        h.Root,
		TxHash:      h.TxHash,
		ReceiptHash: h.ReceiptHash,
		Bloom:       h.Bloom,
		Difficulty:  (*hexutil.Big)(h.Difficulty),
		Number:      (*hexutil.Big)(h.Number),
		GasLimit:    (*hexutil.Uint64)(&h.GasLimit),
		GasUsed:     (*hexutil.Uint64)(&h.GasUsed),
		Time:        (*hexutil.Uint64)(&h.Time),
		Extra:       h.Extra,
		MixDigest:   h.MixDigest,
		Nonce:       h.Nonce,
		Hash:        &hash,
	}
	return json.Marshal(&enc)
}

// UnmarshalJSON unmarshals a hex encoded header.
func (h *Header) UnmarshalJSON(input []byte) error {
	var dec headerMarshaling
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	if dec.Difficulty == nil {
		return errors.New("missing required field 'difficulty' for Header")
	}
	if dec.Number == nil {
		return errors.New("missing required field 'number' for Header")
	}
	h.ParentHash = dec.ParentHash
	h.UncleHash = dec.UncleHash
	h.Coinbase = dec.Coinbase
	h.Root = dec.Root
	h.TxHash = dec.TxHash
	h.ReceiptHash = dec.ReceiptHash
	h.Bloom = dec.Bloom
	h.Difficulty = dec.Difficulty.ToInt()
	h.Number = dec.Number.ToInt()
	if dec.GasLimit != nil {
		h.GasLimit = uint64(*dec.GasLimit)
	}
	if dec.GasUsed != nil {
		h.GasUsed = uint64(*dec.GasUsed)
	}
	if dec.Time != nil {
		h.Time = uint64(*dec.Time)
	}
	h.Extra = dec.Extra
	h.MixDigest = dec.MixDigest
	h.Nonce = dec.Nonce
	return nil
}
