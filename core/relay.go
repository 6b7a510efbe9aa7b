package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hicommonwealth/ethrelay/consensus"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/ethdb"
	"github.com/hicommonwealth/ethrelay/log"
	"github.com/hicommonwealth/ethrelay/metrics_config"
	"github.com/hicommonwealth/ethrelay/params"
	"github.com/prometheus/client_golang/prometheus"
)

// Status classifies what a successful submission did to the chain.
type Status byte

const (
	// StatusDuplicate means the header was already known; nothing changed.
	StatusDuplicate Status = iota
	// StatusExtended means the header became the new head on top of the
	// previous one.
	StatusExtended
	// StatusReorged means the header became the new head by displacing a
	// previously canonical branch.
	StatusReorged
	// StatusSideChain means the header was stored on a non-canonical branch.
	StatusSideChain
)

func (s Status) String() string {
	switch s {
	case StatusDuplicate:
		return "duplicate"
	case StatusExtended:
		return "extended"
	case StatusReorged:
		return "reorged"
	case StatusSideChain:
		return "sidechain"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// SubmitResult reports the outcome of a header submission together with the
// canonical tip after it was applied.
type SubmitResult struct {
	Status     Status
	ReorgDepth uint64
	HeaderHash common.Hash
	TipHash    common.Hash
	TipNumber  uint64
	TipTd      *big.Int
}

// sealProver is implemented by engines that can check a seal from a dataset
// proof instead of recomputing it from local cache data.
type sealProver interface {
	VerifyHeaderProvedRLP(chain consensus.ChainHeaderReader, header *types.Header, proofRLP []byte) error
}

// Relay accepts RLP encoded headers from untrusted submitters, runs the full
// consensus gauntlet over them and folds the survivors into the header chain.
// A single mutex serializes submissions so fork choice always sees a settled
// head.
type Relay struct {
	hc            *HeaderChain
	engine        consensus.Engine
	finalityDepth uint64

	mu     sync.Mutex
	logger *log.Logger

	submitCounter *prometheus.CounterVec
	rejectCounter *prometheus.CounterVec
}

// NewRelay opens (or seeds) the header store and wires the consensus engine
// in front of it. finalityDepth controls how far behind the head side
// branches are kept before pruning; zero disables pruning.
func NewRelay(db ethdb.Database, engine consensus.Engine, chainConfig *params.ChainConfig, checkpoint *types.Checkpoint, finalityDepth uint64, logger *log.Logger) (*Relay, error) {
	hc, err := NewHeaderChain(db, engine, chainConfig, checkpoint, logger)
	if err != nil {
		return nil, err
	}
	return &Relay{
		hc:            hc,
		engine:        engine,
		finalityDepth: finalityDepth,
		logger:        logger,
		submitCounter: metrics_config.NewCounterVec("relay_submissions", "Accepted header submissions by outcome", "status"),
		rejectCounter: metrics_config.NewCounterVec("relay_rejections", "Rejected header submissions by reason", "reason"),
	}, nil
}

// HeaderChain exposes the underlying header store.
func (r *Relay) HeaderChain() *HeaderChain { return r.hc }

// Submit decodes, verifies and stores one header. The verification order is
// fixed: decode, structural sanity, duplicate short-circuit, parent
// presence, difficulty retarget, full consensus check including the seal.
// Errors wrap the sentinel values in this package so callers can classify
// rejections without string matching.
func (r *Relay) Submit(raw []byte) (*SubmitResult, error) {
	return r.submit(raw, nil)
}

// SubmitWithProof is Submit for proof-backed seal verification: instead of
// recomputing the PoW from a local dataset, the seal is checked against the
// supplied RLP encoded dataset proof. The engine must support proof
// verification, otherwise ErrProofRequired is returned.
func (r *Relay) SubmitWithProof(raw, proofRLP []byte) (*SubmitResult, error) {
	if len(proofRLP) == 0 {
		return nil, ErrProofRequired
	}
	return r.submit(raw, proofRLP)
}

func (r *Relay) submit(raw, proofRLP []byte) (*SubmitResult, error) {
	header, err := types.DecodeHeader(raw)
	if err != nil {
		r.reject("decode")
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := header.SanityCheck(); err != nil {
		r.reject("decode")
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		hash   = header.Hash()
		number = header.NumberU64()
	)
	if r.hc.HasHeader(hash, number) {
		r.count(StatusDuplicate)
		return r.result(StatusDuplicate, 0, hash), nil
	}
	parent := r.hc.GetHeader(header.ParentHash, number-1)
	if parent == nil {
		r.reject("orphan")
		return nil, fmt.Errorf("%w: parent %x not known", ErrOrphanHeader, header.ParentHash)
	}
	if expected := r.engine.CalcDifficulty(r.hc, header.Time, parent); expected.Cmp(header.Difficulty) != 0 {
		r.reject("difficulty")
		return nil, fmt.Errorf("%w: have %v, want %v", ErrDifficultyMismatch, header.Difficulty, expected)
	}
	if err := r.verify(header, proofRLP); err != nil {
		if errors.Is(err, consensus.ErrInvalidPoW) {
			r.reject("pow")
			return nil, fmt.Errorf("%w: %v", ErrPowInvalid, err)
		}
		if errors.Is(err, consensus.ErrProofRequired) {
			r.reject("proof")
			return nil, fmt.Errorf("%w: %v", ErrProofRequired, err)
		}
		r.reject("consensus")
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	written, err := r.hc.WriteHeader(header)
	if err != nil {
		return nil, err
	}
	status := StatusSideChain
	if written.Status == CanonStatTy {
		if written.ReorgDepth > 0 {
			status = StatusReorged
		} else {
			status = StatusExtended
		}
		if r.finalityDepth > 0 {
			if _, err := r.hc.Prune(r.finalityDepth); err != nil {
				r.logger.WithField("err", err).Warn("Pruning failed")
			}
		}
	}
	r.count(status)
	r.logger.WithFields(log.Fields{
		"number": number,
		"hash":   hash,
		"status": status.String(),
	}).Debug("Imported new header")
	return r.result(status, written.ReorgDepth, hash), nil
}

func (r *Relay) verify(header *types.Header, proofRLP []byte) error {
	if proofRLP == nil {
		return r.engine.VerifyHeader(r.hc, header)
	}
	prover, ok := r.engine.(sealProver)
	if !ok {
		return ErrProofRequired
	}
	return prover.VerifyHeaderProvedRLP(r.hc, header, proofRLP)
}

func (r *Relay) result(status Status, depth uint64, hash common.Hash) *SubmitResult {
	tip := r.hc.CurrentHeader()
	return &SubmitResult{
		Status:     status,
		ReorgDepth: depth,
		HeaderHash: hash,
		TipHash:    tip.Hash(),
		TipNumber:  tip.NumberU64(),
		TipTd:      r.hc.GetTd(tip.Hash(), tip.NumberU64()),
	}
}

func (r *Relay) count(status Status) {
	if r.submitCounter != nil {
		r.submitCounter.WithLabelValues(status.String()).Inc()
	}
}

func (r *Relay) reject(reason string) {
	if r.rejectCounter != nil {
		r.rejectCounter.WithLabelValues(reason).Inc()
	}
}

// CanonicalTip returns the hash, number and total difficulty of the current
// canonical head.
func (r *Relay) CanonicalTip() (common.Hash, uint64, *big.Int) {
	tip := r.hc.CurrentHeader()
	return tip.Hash(), tip.NumberU64(), r.hc.GetTd(tip.Hash(), tip.NumberU64())
}

// HeaderByHash returns the stored header with the given hash, or nil.
func (r *Relay) HeaderByHash(hash common.Hash) *types.Header {
	return r.hc.GetHeaderByHash(hash)
}

// HeaderByNumber returns the canonical header at the given height, or nil.
func (r *Relay) HeaderByNumber(number uint64) *types.Header {
	return r.hc.GetHeaderByNumber(number)
}

// IsAncestor reports whether candidate lies on the chain ending at of.
func (r *Relay) IsAncestor(candidate, of common.Hash) bool {
	return r.hc.IsAncestor(candidate, of)
}

// Ancestors returns up to depth ancestors of the given header, newest first.
func (r *Relay) Ancestors(hash common.Hash, depth uint64) []*types.Header {
	return r.hc.Ancestors(hash, depth)
}

// Stop tears down the relay and its consensus engine.
func (r *Relay) Stop() error {
	return r.engine.Close()
}
