package core

// store_sql.go – durable persistence for the committed chain.
//
// The teacher has no SQL-backed store (its core/storage.go is an IPFS/
// Arweave pinning gateway, unrelated to chain persistence); this is
// grounded instead on the retrieved Klingon exchange's internal/storage
// package, which opens a database/sql handle against mattn/go-sqlite3 and
// keeps a small hand-rolled schema. Three tables per spec.md §4.7: blocks,
// transactions (indexed for single-tx lookups) and snapshots (a full-state
// blob written with every committed block so startup doesn't have to
// replay from genesis).

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS blocks (
	height        INTEGER PRIMARY KEY,
	hash          TEXT NOT NULL UNIQUE,
	previous_hash TEXT NOT NULL,
	validator     TEXT NOT NULL,
	merkle_root   TEXT NOT NULL,
	timestamp     INTEGER NOT NULL,
	payload       BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	hash         TEXT PRIMARY KEY,
	block_height INTEGER NOT NULL REFERENCES blocks(height),
	tx_index     INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	sender       TEXT NOT NULL,
	payload      BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_block ON transactions(block_height);
CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender);
CREATE TABLE IF NOT EXISTS snapshots (
	height INTEGER PRIMARY KEY,
	state  BLOB NOT NULL
);
`

// SQLStore is the ledger's durable backing store, one row per committed
// block/transaction/snapshot. In-memory state (Ledger) is the read path for
// every query this engine serves; the store exists purely for crash
// recovery and audit.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (creating if necessary) the SQLite database at path
// and ensures its schema exists. path may be ":memory:" for ephemeral test
// ledgers, matching database/sql's own convention.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serialises writers anyway; avoids SQLITE_BUSY races
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: init schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// CommitBlock persists block and its transactions alongside a fresh state
// snapshot in one SQL transaction — spec.md §4.7's "atomic per-block
// commit". Either every row lands or none does.
func (s *SQLStore) CommitBlock(block *Block, stateBlob []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit block: %w", err)
	}
	defer tx.Rollback()

	payload, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("commit block: marshal block: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO blocks (height, hash, previous_hash, validator, merkle_root, timestamp, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		block.Index, block.Hash.String(), block.PreviousHash.String(), string(block.Validator),
		block.MerkleRoot.String(), block.Timestamp, payload,
	); err != nil {
		return fmt.Errorf("commit block: insert block: %w", err)
	}

	for i, t := range block.Transactions {
		txPayload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("commit block: marshal tx: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO transactions (hash, block_height, tx_index, kind, sender, payload)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.Hash.String(), block.Index, i, string(t.Kind), string(t.Sender), txPayload,
		); err != nil {
			return fmt.Errorf("commit block: insert tx: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO snapshots (height, state) VALUES (?, ?)`, block.Index, stateBlob); err != nil {
		return fmt.Errorf("commit block: insert snapshot: %w", err)
	}

	return tx.Commit()
}

// LoadAllBlocks returns every committed block ordered by height, used by
// OpenLedger to rebuild the in-memory chain index.
func (s *SQLStore) LoadAllBlocks() ([]*Block, error) {
	rows, err := s.db.Query(`SELECT payload FROM blocks ORDER BY height ASC`)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*Block
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("load blocks: %w", err)
		}
		var blk Block
		if err := json.Unmarshal(payload, &blk); err != nil {
			return nil, fmt.Errorf("load blocks: decode: %w", err)
		}
		blocks = append(blocks, &blk)
	}
	return blocks, rows.Err()
}

// LatestSnapshot returns the most recently committed state blob and the
// block height it reflects. ok is false if the store has never committed a
// block.
func (s *SQLStore) LatestSnapshot() (height uint64, state []byte, ok bool, err error) {
	row := s.db.QueryRow(`SELECT height, state FROM snapshots ORDER BY height DESC LIMIT 1`)
	if scanErr := row.Scan(&height, &state); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("latest snapshot: %w", scanErr)
	}
	return height, state, true, nil
}

// SaveSnapshot upserts the state blob for height, used by Ledger.Reindex to
// persist a freshly re-derived snapshot without going through CommitBlock.
func (s *SQLStore) SaveSnapshot(height uint64, state []byte) error {
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO snapshots (height, state) VALUES (?, ?)`, height, state); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
