package core

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/hicommonwealth/ethrelay/consensus"
	"github.com/hicommonwealth/ethrelay/core/rawdb"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/ethdb"
	"github.com/hicommonwealth/ethrelay/log"
	"github.com/hicommonwealth/ethrelay/params"
)

const (
	headerCacheLimit = 512
	tdCacheLimit     = 1024
	numberCacheLimit = 2048

	// chainDBVersion is the schema version of the header store. Bump it when
	// the key layout or record encoding changes incompatibly.
	chainDBVersion = 1
)

// WriteStatus is the outcome classification of a header write.
type WriteStatus byte

const (
	// NonStatTy means the write did not complete.
	NonStatTy WriteStatus = iota
	// CanonStatTy means the header became part of the canonical chain.
	CanonStatTy
	// SideStatTy means the header was stored on a non-canonical branch.
	SideStatTy
)

// WriteResult reports how a header write changed the chain.
type WriteResult struct {
	Status WriteStatus
	// ReorgDepth is the distance from the previous head down to the fork
	// point when the write displaced the canonical chain. Zero for plain
	// extensions and side writes.
	ReorgDepth uint64
}

// HeaderChain is an arena of verified header records over a key-value store,
// rooted at a checkpoint trust anchor, with a total-difficulty canonical
// pointer on top. It does no verification of its own: callers insert headers
// that already passed consensus checks.
type HeaderChain struct {
	config *params.ChainConfig

	db     ethdb.Database
	engine consensus.Engine
	forker *ForkChoice

	checkpoint    *types.Checkpoint
	currentHeader atomic.Value // Current head of the header chain

	headerCache *lru.Cache // Cache for the most recent headers
	tdCache     *lru.Cache // Cache for the most recent total difficulties
	numberCache *lru.Cache // Cache for the most recent hash to number mappings

	headermu sync.RWMutex

	logger *log.Logger
}

// NewHeaderChain creates a new HeaderChain structure rooted at the given
// checkpoint. A fresh database is seeded with the anchor record; a populated
// one restores its previous head and is checked against the supplied anchor.
func NewHeaderChain(db ethdb.Database, engine consensus.Engine, chainConfig *params.ChainConfig, checkpoint *types.Checkpoint, logger *log.Logger) (*HeaderChain, error) {
	headerCache, _ := lru.New(headerCacheLimit)
	tdCache, _ := lru.New(tdCacheLimit)
	numberCache, _ := lru.New(numberCacheLimit)

	hc := &HeaderChain{
		config:      chainConfig,
		db:          db,
		engine:      engine,
		headerCache: headerCache,
		tdCache:     tdCache,
		numberCache: numberCache,
		logger:      logger,
	}
	hc.forker = NewForkChoice(hc)

	if version := rawdb.ReadDatabaseVersion(db); version == nil {
		rawdb.WriteDatabaseVersion(db, chainDBVersion)
	} else if *version != chainDBVersion {
		return nil, fmt.Errorf("incompatible header store version: have %d, want %d", *version, chainDBVersion)
	}

	stored := rawdb.ReadCheckpoint(db)
	switch {
	case stored == nil && checkpoint == nil:
		return nil, ErrNoCheckpoint
	case stored == nil:
		if err := checkpoint.Sanity(); err != nil {
			return nil, err
		}
		hc.checkpoint = checkpoint
		if err := hc.writeAnchor(checkpoint); err != nil {
			return nil, err
		}
	default:
		if checkpoint != nil && stored.Hash() != checkpoint.Hash() {
			return nil, ErrCheckpointMismatch
		}
		hc.checkpoint = stored
	}

	if err := hc.loadLastState(); err != nil {
		return nil, err
	}
	hc.logger.WithFields(log.Fields{
		"anchor": hc.checkpoint.Hash(),
		"number": hc.checkpoint.Number(),
		"head":   hc.CurrentHeader().Hash(),
	}).Info("Initialized header chain")
	return hc, nil
}

// writeAnchor seeds an empty database with the checkpoint record and makes it
// the canonical head.
func (hc *HeaderChain) writeAnchor(cp *types.Checkpoint) error {
	batch := hc.db.NewBatch()
	rawdb.WriteHeader(batch, cp.Header)
	rawdb.WriteTd(batch, cp.Hash(), cp.Number(), cp.TotalDifficulty)
	rawdb.WriteCanonicalHash(batch, cp.Hash(), cp.Number())
	rawdb.WriteHeadHeaderHash(batch, cp.Hash())
	rawdb.WriteCheckpoint(batch, cp)
	rawdb.WriteChainConfig(batch, cp.Hash(), hc.config)
	return batch.Write()
}

// loadLastState restores the canonical head pointer from the database,
// falling back to the checkpoint anchor.
func (hc *HeaderChain) loadLastState() error {
	if head := rawdb.ReadHeadHeaderHash(hc.db); head != (common.Hash{}) {
		if chead := hc.GetHeaderByHash(head); chead != nil {
			hc.currentHeader.Store(chead)
			return nil
		}
	}
	hc.currentHeader.Store(hc.checkpoint.Header)
	return nil
}

// WriteHeader stores a verified header with its total difficulty and runs the
// fork choice rule against the current head. The header's parent must already
// be known and the header itself must not be: re-inserting a stored header
// returns consensus.ErrKnownHeader. All database mutation of one write goes
// through a single batch, so a failed write leaves no partial state.
func (hc *HeaderChain) WriteHeader(header *types.Header) (*WriteResult, error) {
	hc.headermu.Lock()
	defer hc.headermu.Unlock()

	var (
		hash   = header.Hash()
		number = header.NumberU64()
	)
	if hc.HasHeader(hash, number) {
		return nil, consensus.ErrKnownHeader
	}
	ptd := hc.GetTd(header.ParentHash, number-1)
	if ptd == nil {
		return nil, consensus.ErrUnknownAncestor
	}
	externTd := new(big.Int).Add(ptd, header.Difficulty)

	current := hc.CurrentHeader()
	reorg, err := hc.forker.ReorgNeeded(current, header, externTd)
	if err != nil {
		return nil, err
	}

	batch := hc.db.NewBatch()
	rawdb.WriteHeader(batch, header)
	rawdb.WriteTd(batch, hash, number, externTd)

	result := &WriteResult{Status: SideStatTy}
	if reorg {
		if header.ParentHash == current.Hash() {
			// Plain extension of the head, just wire the canonical index.
			rawdb.WriteCanonicalHash(batch, hash, number)
			rawdb.WriteHeadHeaderHash(batch, hash)
			result = &WriteResult{Status: CanonStatTy}
		} else {
			depth, err := hc.rewriteCanonical(batch, header, current)
			if err != nil {
				return nil, err
			}
			result = &WriteResult{Status: CanonStatTy, ReorgDepth: depth}
		}
	}
	if err := batch.Write(); err != nil {
		return nil, err
	}
	hc.headerCache.Add(hash, header)
	hc.tdCache.Add(hash, externTd)
	hc.numberCache.Add(hash, number)
	if reorg {
		hc.currentHeader.Store(header)
	}
	return result, nil
}

// rewriteCanonical points the canonical index at the branch ending in header.
// It walks the new branch down to the lowest common ancestor with the old
// canonical chain, unwinds the stale canonical entries and writes the new
// ones, returning the reorg depth measured from the old head.
func (hc *HeaderChain) rewriteCanonical(batch ethdb.Batch, header, oldHead *types.Header) (uint64, error) {
	newChain := []*types.Header{header}

	ancestor := hc.GetHeader(header.ParentHash, header.NumberU64()-1)
	for ancestor != nil && hc.GetCanonicalHash(ancestor.NumberU64()) != ancestor.Hash() {
		newChain = append(newChain, ancestor)
		ancestor = hc.GetHeader(ancestor.ParentHash, ancestor.NumberU64()-1)
	}
	if ancestor == nil {
		return 0, consensus.ErrUnknownAncestor
	}
	// Unwind the old canonical index above the fork point.
	for n := ancestor.NumberU64() + 1; n <= oldHead.NumberU64(); n++ {
		rawdb.DeleteCanonicalHash(batch, n)
	}
	// Wire the new branch from the fork point up.
	for i := len(newChain) - 1; i >= 0; i-- {
		rawdb.WriteCanonicalHash(batch, newChain[i].Hash(), newChain[i].NumberU64())
	}
	rawdb.WriteHeadHeaderHash(batch, header.Hash())

	var depth uint64
	if oldHead.NumberU64() > ancestor.NumberU64() {
		depth = oldHead.NumberU64() - ancestor.NumberU64()
	}
	hc.logger.WithFields(log.Fields{
		"number":   header.NumberU64(),
		"hash":     header.Hash(),
		"forkedAt": ancestor.NumberU64(),
		"depth":    depth,
	}).Info("Chain reorg executed")
	return depth, nil
}

// Prune removes non-canonical records strictly below the finality horizon
// (head height minus finalityDepth). Canonical history is kept in full.
// Pruned branches are permanently forgotten.
func (hc *HeaderChain) Prune(finalityDepth uint64) (int, error) {
	hc.headermu.Lock()
	defer hc.headermu.Unlock()

	current := hc.CurrentHeader()
	if current.NumberU64() <= finalityDepth {
		return 0, nil
	}
	horizon := current.NumberU64() - finalityDepth

	start := rawdb.ReadPruneHeight(hc.db)
	if start < hc.checkpoint.Number() {
		start = hc.checkpoint.Number()
	}
	if start >= horizon {
		return 0, nil
	}
	removed := 0
	batch := hc.db.NewBatch()
	for n := start; n < horizon; n++ {
		canonical := rawdb.ReadCanonicalHash(hc.db, n)
		for _, hash := range rawdb.ReadAllHashes(hc.db, n) {
			if hash == canonical {
				continue
			}
			rawdb.DeleteHeader(batch, hash, n)
			rawdb.DeleteTd(batch, hash, n)
			hc.headerCache.Remove(hash)
			hc.tdCache.Remove(hash)
			hc.numberCache.Remove(hash)
			removed++
		}
	}
	rawdb.WritePruneHeight(batch, horizon)
	if err := batch.Write(); err != nil {
		return 0, err
	}
	if removed > 0 {
		hc.logger.WithFields(log.Fields{
			"removed": removed,
			"horizon": horizon,
		}).Debug("Pruned stale branches")
	}
	return removed, nil
}

// GetBlockNumber retrieves the block number belonging to the given hash
// from the cache or database.
func (hc *HeaderChain) GetBlockNumber(hash common.Hash) *uint64 {
	if cached, ok := hc.numberCache.Get(hash); ok {
		number := cached.(uint64)
		return &number
	}
	number := rawdb.ReadHeaderNumber(hc.db, hash)
	if number != nil {
		hc.numberCache.Add(hash, *number)
	}
	return number
}

// GetHeader retrieves a header from the database by hash and number,
// caching it if found.
func (hc *HeaderChain) GetHeader(hash common.Hash, number uint64) *types.Header {
	if header, ok := hc.headerCache.Get(hash); ok {
		return header.(*types.Header)
	}
	header := rawdb.ReadHeader(hc.db, hash, number)
	if header == nil {
		return nil
	}
	hc.headerCache.Add(hash, header)
	return header
}

// GetHeaderByHash retrieves a header from the database by hash, caching it if
// found.
func (hc *HeaderChain) GetHeaderByHash(hash common.Hash) *types.Header {
	number := hc.GetBlockNumber(hash)
	if number == nil {
		return nil
	}
	return hc.GetHeader(hash, *number)
}

// GetHeaderByNumber retrieves a canonical header from the database by number.
func (hc *HeaderChain) GetHeaderByNumber(number uint64) *types.Header {
	hash := rawdb.ReadCanonicalHash(hc.db, number)
	if hash == (common.Hash{}) {
		return nil
	}
	return hc.GetHeader(hash, number)
}

// GetCanonicalHash returns the canonical hash for a given block number.
func (hc *HeaderChain) GetCanonicalHash(number uint64) common.Hash {
	return rawdb.ReadCanonicalHash(hc.db, number)
}

// GetTd retrieves a block's total difficulty from the database by hash and
// number, caching it if found.
func (hc *HeaderChain) GetTd(hash common.Hash, number uint64) *big.Int {
	if cached, ok := hc.tdCache.Get(hash); ok {
		return cached.(*big.Int)
	}
	td := rawdb.ReadTd(hc.db, hash, number)
	if td == nil {
		return nil
	}
	hc.tdCache.Add(hash, td)
	return td
}

// HasHeader checks if a header is present in the database or not.
func (hc *HeaderChain) HasHeader(hash common.Hash, number uint64) bool {
	if hc.numberCache.Contains(hash) || hc.headerCache.Contains(hash) {
		return true
	}
	return rawdb.HasHeader(hc.db, hash, number)
}

// CurrentHeader retrieves the current head header of the canonical chain.
func (hc *HeaderChain) CurrentHeader() *types.Header {
	return hc.currentHeader.Load().(*types.Header)
}

// Ancestors returns up to depth ancestors of the given header, newest first,
// walking parent links. The walk stops at the checkpoint anchor or at a
// pruned record.
func (hc *HeaderChain) Ancestors(hash common.Hash, depth uint64) []*types.Header {
	header := hc.GetHeaderByHash(hash)
	if header == nil {
		return nil
	}
	ancestors := make([]*types.Header, 0, depth)
	for i := uint64(0); i < depth; i++ {
		if header.NumberU64() <= hc.checkpoint.Number() {
			break
		}
		header = hc.GetHeader(header.ParentHash, header.NumberU64()-1)
		if header == nil {
			break
		}
		ancestors = append(ancestors, header)
	}
	return ancestors
}

// IsAncestor reports whether candidate is an ancestor of (or equal to) the
// header identified by of. Canonical membership is answered from the number
// index, side branches by walking parent links.
func (hc *HeaderChain) IsAncestor(candidate, of common.Hash) bool {
	cn := hc.GetBlockNumber(candidate)
	on := hc.GetBlockNumber(of)
	if cn == nil || on == nil || *cn > *on {
		return false
	}
	// Fast path: both sit on the canonical chain.
	if hc.GetCanonicalHash(*on) == of && hc.GetCanonicalHash(*cn) == candidate {
		return true
	}
	header := hc.GetHeaderByHash(of)
	for header != nil && header.NumberU64() > *cn {
		header = hc.GetHeader(header.ParentHash, header.NumberU64()-1)
	}
	return header != nil && header.Hash() == candidate
}

// Config retrieves the header chain's chain configuration.
func (hc *HeaderChain) Config() *params.ChainConfig { return hc.config }

// Engine retrieves the header chain's consensus engine.
func (hc *HeaderChain) Engine() consensus.Engine { return hc.engine }

// Checkpoint returns the trust anchor the chain is rooted at.
func (hc *HeaderChain) Checkpoint() *types.Checkpoint { return hc.checkpoint }
