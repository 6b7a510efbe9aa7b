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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/hicommonwealth/ethrelay/consensus"
	"github.com/hicommonwealth/ethrelay/core/types"
	"golang.org/x/crypto/sha3"
)

var (
	errUnknownEpochRoot   = errors.New("no pinned dataset root for epoch")
	errProofEpochMismatch = errors.New("proof epoch does not match header")
	errProofLookupCount   = errors.New("wrong number of proof lookups")
	errProofLeafSize      = errors.New("proof leaf has wrong size")
	errProofLeafIndex     = errors.New("proof leaf index out of order")
	errProofBranch        = errors.New("proof branch does not reach epoch root")
)

// ProofLookup carries one dataset access of a hashimoto run: the 128 bytes of
// dataset data the access touched and the Merkle branch authenticating them
// against the epoch's dataset root.
type ProofLookup struct {
	Index  uint32        // Index of the 128-byte leaf within the epoch dataset
	Data   []byte        // The leaf content, two consecutive 64-byte dataset items
	Branch []common.Hash // Sibling hashes from the leaf up to the root
}

// DatasetProof authenticates all 64 dataset accesses of a single hashimoto
// run, allowing seal verification against a pinned per-epoch Merkle root
// without possession of the dataset itself.
type DatasetProof struct {
	Epoch   uint64
	Lookups []ProofLookup
}

// EncodeRLP flattens a proof into its canonical RLP form for transport.
func (p *DatasetProof) EncodeRLP() ([]byte, error) {
	return rlp.EncodeToBytes(p)
}

// DecodeDatasetProof parses a proof from its canonical RLP form.
func DecodeDatasetProof(data []byte) (*DatasetProof, error) {
	proof := new(DatasetProof)
	if err := rlp.DecodeBytes(data, proof); err != nil {
		return nil, err
	}
	return proof, nil
}

// leafCount returns the number of 128-byte leaves in the dataset of the given
// full size.
func leafCount(fullSize uint64) uint32 {
	return uint32(fullSize / mixBytes)
}

// treeDepth returns the number of branch levels needed to cover count leaves.
func treeDepth(count uint32) int {
	depth := 0
	for width := uint32(1); width < count; width *= 2 {
		depth++
	}
	return depth
}

// zeroHashes returns the padding node for each tree level: level 0 is the hash
// of an all-zero leaf, level n+1 the hash of two level n nodes.
func zeroHashes(depth int) []common.Hash {
	hashes := make([]common.Hash, depth+1)
	hashes[0] = crypto.Keccak256Hash(make([]byte, mixBytes))
	for i := 1; i <= depth; i++ {
		hashes[i] = crypto.Keccak256Hash(hashes[i-1].Bytes(), hashes[i-1].Bytes())
	}
	return hashes
}

// datasetLeaf extracts the 128-byte leaf at the given index from an in-memory
// dataset, serialized in little endian word order.
func datasetLeaf(dataset []uint32, index uint32) []byte {
	leaf := make([]byte, mixBytes)
	offset := uint64(index) * mixBytes / 4
	for i := 0; i < mixBytes/4; i++ {
		binary.LittleEndian.PutUint32(leaf[i*4:], dataset[offset+uint64(i)])
	}
	return leaf
}

// datasetMerkleLevels hashes an entire in-memory dataset into its Merkle tree,
// returning every level from the leaf hashes up to the single root.
func datasetMerkleLevels(dataset []uint32) [][]common.Hash {
	count := uint32(uint64(len(dataset)) * 4 / mixBytes)
	depth := treeDepth(count)
	padding := zeroHashes(depth)

	levels := make([][]common.Hash, depth+1)
	levels[0] = make([]common.Hash, count)

	keccak256 := makeHasher(sha3.NewLegacyKeccak256())
	var leafHash common.Hash
	for i := uint32(0); i < count; i++ {
		keccak256(leafHash[:], datasetLeaf(dataset, i))
		levels[0][i] = leafHash
	}
	for level := 0; level < depth; level++ {
		prev := levels[level]
		next := make([]common.Hash, (len(prev)+1)/2)
		for i := range next {
			left := prev[2*i]
			right := padding[level]
			if 2*i+1 < len(prev) {
				right = prev[2*i+1]
			}
			keccak256(leafHash[:], append(left.Bytes(), right.Bytes()...))
			next[i] = leafHash
		}
		levels[level+1] = next
	}
	return levels
}

// datasetMerkleRoot reduces an in-memory dataset to its Merkle root.
func datasetMerkleRoot(dataset []uint32) common.Hash {
	levels := datasetMerkleLevels(dataset)
	return levels[len(levels)-1][0]
}

// branchForLeaf collects the sibling hashes authenticating one leaf.
func branchForLeaf(levels [][]common.Hash, index uint32) []common.Hash {
	depth := len(levels) - 1
	padding := zeroHashes(depth)

	branch := make([]common.Hash, depth)
	for level := 0; level < depth; level++ {
		sibling := index ^ 1
		if int(sibling) < len(levels[level]) {
			branch[level] = levels[level][sibling]
		} else {
			branch[level] = padding[level]
		}
		index /= 2
	}
	return branch
}

// verifyBranch checks that a leaf's data hashes up through its branch to the
// expected root.
func verifyBranch(root common.Hash, index uint32, data []byte, branch []common.Hash) bool {
	node := crypto.Keccak256Hash(data)
	for _, sibling := range branch {
		if index&1 == 0 {
			node = crypto.Keccak256Hash(node.Bytes(), sibling.Bytes())
		} else {
			node = crypto.Keccak256Hash(sibling.Bytes(), node.Bytes())
		}
		index /= 2
	}
	return node == root
}

// EpochRoot computes the Merkle root of the dataset for the given epoch. It
// needs the full dataset generated and is therefore only suitable for tooling
// that pins trust anchors, not for the submission path.
func (ethash *Ethash) EpochRoot(epoch uint64) common.Hash {
	current := ethash.dataset(epoch*epochLength+1, false)

	root := datasetMerkleRoot(current.dataset)
	runtime.KeepAlive(current)
	return root
}

// GenerateDatasetProof runs hashimoto for the given header and records every
// dataset access along with its Merkle branch. The resulting proof lets a
// verifier holding only the epoch root validate the seal.
func (ethash *Ethash) GenerateDatasetProof(header *types.Header) (*DatasetProof, error) {
	number := header.NumberU64()
	epoch := number / epochLength
	current := ethash.dataset(number, false)

	levels := datasetMerkleLevels(current.dataset)

	proof := &DatasetProof{Epoch: epoch}
	lookup := func(index uint32) []uint32 {
		leaf := index / 2
		if index%2 == 0 {
			proof.Lookups = append(proof.Lookups, ProofLookup{
				Index:  leaf,
				Data:   datasetLeaf(current.dataset, leaf),
				Branch: branchForLeaf(levels, leaf),
			})
		}
		offset := index * hashWords
		return current.dataset[offset : offset+hashWords]
	}
	hashimoto(ethash.SealHash(header).Bytes(), header.Nonce.Uint64(), uint64(len(current.dataset))*4, lookup)
	runtime.KeepAlive(current)

	return proof, nil
}

// VerifyHeaderWithProof checks a header's seal against a pinned per-epoch
// dataset root, using the supplied proof instead of any locally generated
// cache or dataset. The remaining header rules still go through VerifyHeader.
func (ethash *Ethash) VerifyHeaderWithProof(header *types.Header, proof *DatasetProof) error {
	if header.Difficulty.Sign() <= 0 {
		return errInvalidDifficulty
	}
	number := header.NumberU64()
	epoch := number / epochLength
	if proof.Epoch != epoch {
		return errProofEpochMismatch
	}
	ethash.lock.Lock()
	root, ok := ethash.config.EpochRoots[epoch]
	ethash.lock.Unlock()
	if !ok {
		return errUnknownEpochRoot
	}
	if len(proof.Lookups) != loopAccesses {
		return errProofLookupCount
	}
	fullSize := datasetSize(number)
	if ethash.config.PowMode == ModeTest {
		fullSize = 32 * 1024
	}

	// Replay hashimoto, feeding dataset accesses from the proof. The access
	// order is deterministic, so the lookups are consumed sequentially.
	var (
		access    = -1
		lookupErr error
	)
	lookup := func(index uint32) []uint32 {
		leaf := index / 2
		if index%2 == 0 {
			access++
		}
		words := make([]uint32, hashWords)
		if lookupErr != nil || access >= len(proof.Lookups) {
			return words
		}
		lk := proof.Lookups[access]
		switch {
		case len(lk.Data) != mixBytes:
			lookupErr = errProofLeafSize
		case lk.Index != leaf:
			lookupErr = fmt.Errorf("%w: have %d, want %d", errProofLeafIndex, lk.Index, leaf)
		case index%2 == 0 && !verifyBranch(root, lk.Index, lk.Data, lk.Branch):
			lookupErr = errProofBranch
		default:
			half := int(index%2) * hashBytes
			for i := 0; i < hashWords; i++ {
				words[i] = binary.LittleEndian.Uint32(lk.Data[half+i*4:])
			}
		}
		return words
	}
	digest, result := hashimoto(ethash.SealHash(header).Bytes(), header.Nonce.Uint64(), fullSize, lookup)
	if lookupErr != nil {
		return lookupErr
	}
	if !bytes.Equal(header.MixDigest[:], digest) {
		return errInvalidMixDigest
	}
	return checkDifficulty(result, header.Difficulty)
}

// VerifyHeaderProved checks a header against the full consensus rules, with
// the seal validated through a dataset proof instead of locally generated
// ethash data. This is the verification entry point for metered environments
// that cannot afford cache or dataset generation.
func (ethash *Ethash) VerifyHeaderProved(chain consensus.ChainHeaderReader, header *types.Header, proof *DatasetProof) error {
	parent := chain.GetHeader(header.ParentHash, header.NumberU64()-1)
	if parent == nil {
		return consensus.ErrUnknownAncestor
	}
	if err := ethash.verifyHeader(chain, header, parent, time.Now().Unix(), false); err != nil {
		return err
	}
	return ethash.VerifyHeaderWithProof(header, proof)
}

// VerifyHeaderProvedRLP is VerifyHeaderProved over a still-encoded proof.
// It exists so callers can hand proofs through without knowing their wire
// format.
func (ethash *Ethash) VerifyHeaderProvedRLP(chain consensus.ChainHeaderReader, header *types.Header, proofRLP []byte) error {
	proof, err := DecodeDatasetProof(proofRLP)
	if err != nil {
		return fmt.Errorf("invalid dataset proof encoding: %w", err)
	}
	return ethash.VerifyHeaderProved(chain, header, proof)
}

// PinEpochRoot registers a trust anchor for an epoch's dataset, enabling
// proof based verification of headers in that epoch.
func (ethash *Ethash) PinEpochRoot(epoch uint64, root common.Hash) {
	ethash.lock.Lock()
	defer ethash.lock.Unlock()

	if ethash.config.EpochRoots == nil {
		ethash.config.EpochRoots = make(map[uint64]common.Hash)
	}
	ethash.config.EpochRoots[epoch] = root
}

// ParseEpochRoots decodes a set of per-epoch dataset roots from JSON, keyed
// by decimal epoch number. This is the on-disk form trust anchors are
// distributed in for ModeProof deployments.
func ParseEpochRoots(data []byte) (map[uint64]common.Hash, error) {
	var encoded map[string]common.Hash
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, err
	}
	roots := make(map[uint64]common.Hash, len(encoded))
	for key, root := range encoded {
		epoch, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid epoch number %q: %w", key, err)
		}
		roots[epoch] = root
	}
	return roots, nil
}
