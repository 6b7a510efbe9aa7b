// Copyright 2018 The go-ethereum Authors
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

package rawdb

import (
	"fmt"

	"github.com/hicommonwealth/ethrelay/ethdb"
	"github.com/hicommonwealth/ethrelay/ethdb/leveldb"
	"github.com/hicommonwealth/ethrelay/ethdb/memorydb"
	"github.com/hicommonwealth/ethrelay/ethdb/pebble"
	"github.com/hicommonwealth/ethrelay/log"
)

// relaydb wraps a key-value store so the rest of the code deals in the
// ethdb.Database composite interface only.
type relaydb struct {
	ethdb.KeyValueStore
}

// NewDatabase creates a high level database on top of a given key-value data store.
func NewDatabase(db ethdb.KeyValueStore) ethdb.Database {
	return &relaydb{KeyValueStore: db}
}

// NewMemoryDatabase creates an ephemeral in-memory key-value database without a
// freezer moving immutable chain segments into cold storage.
func NewMemoryDatabase() ethdb.Database {
	return NewDatabase(memorydb.New())
}

// NewLevelDBDatabase creates a persistent key-value database backed by LevelDB.
func NewLevelDBDatabase(file string, cache int, handles int, readonly bool, logger *log.Logger) (ethdb.Database, error) {
	db, err := leveldb.New(file, cache, handles, readonly, logger)
	if err != nil {
		return nil, err
	}
	return NewDatabase(db), nil
}

// NewPebbleDBDatabase creates a persistent key-value database backed by pebble.
func NewPebbleDBDatabase(file string, cache int, handles int, readonly bool, logger *log.Logger) (ethdb.Database, error) {
	db, err := pebble.New(file, cache, handles, readonly, logger)
	if err != nil {
		return nil, err
	}
	return NewDatabase(db), nil
}

// Open opens both a disk-based key-value database (either leveldb or pebble)
// selected by the engine name.
func Open(engine string, file string, cache int, handles int, readonly bool, logger *log.Logger) (ethdb.Database, error) {
	switch engine {
	case "", "pebble":
		return NewPebbleDBDatabase(file, cache, handles, readonly, logger)
	case "leveldb":
		return NewLevelDBDatabase(file, cache, handles, readonly, logger)
	default:
		return nil, fmt.Errorf("unknown db engine %q", engine)
	}
}
