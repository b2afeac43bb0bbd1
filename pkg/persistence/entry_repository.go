// Copyright 2025 OpenGrantStack
//
// Package persistence exports confirmed ledger state to Postgres for
// durable audit storage, grounded on the certen-validator proof
// repository's client/query/scan shape (pkg/database/repository_proof.go)
// narrowed to the single ledger_entries table this domain needs.
// It is never in the core's write path — pkg/ledger stays in-memory;
// ExportEntries is called on demand, from pkg/httpapi's execute
// handler. Transactions and their audit trails are not exported.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/secretbox"
)

// Client wraps a *sql.DB opened against a Postgres DSN via lib/pq.
type Client struct {
	db *sql.DB
}

// Open connects to dsn using the lib/pq driver.
func Open(dsn string) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}
	return &Client{db: db}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error { return c.db.Close() }

// EntryRepository persists ledger entries for audit/reporting.
type EntryRepository struct {
	client *Client
	box    *secretbox.Box
}

// NewEntryRepository constructs a repository over client. box is
// optional: when non-nil, each entry's Metadata is sealed before being
// written, so donor/grantee metadata never lands in Postgres in the
// clear.
func NewEntryRepository(client *Client, box *secretbox.Box) *EntryRepository {
	return &EntryRepository{client: client, box: box}
}

// Schema is the DDL a deployment runs once to provision the audit
// tables this repository reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	entry_id        TEXT PRIMARY KEY,
	transaction_id  TEXT NOT NULL,
	account_id      TEXT NOT NULL,
	amount_minor    BIGINT NOT NULL,
	currency        TEXT NOT NULL,
	entry_type      TEXT NOT NULL,
	hash            TEXT NOT NULL,
	previous_hash   TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	encrypted_metadata BYTEA,
	created_at      TIMESTAMPTZ NOT NULL,
	exported_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ledger_entries_tx_idx ON ledger_entries (transaction_id);
`

// ExportEntry upserts one entry's durable audit record. When the
// repository was constructed with a secretbox.Box, the entry's
// Metadata is sealed before being written.
func (r *EntryRepository) ExportEntry(ctx context.Context, e ledger.Entry) error {
	const query = `
		INSERT INTO ledger_entries (
			entry_id, transaction_id, account_id, amount_minor, currency,
			entry_type, hash, previous_hash, status, encrypted_metadata, created_at, exported_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (entry_id) DO UPDATE SET
			status = EXCLUDED.status,
			encrypted_metadata = EXCLUDED.encrypted_metadata,
			exported_at = EXCLUDED.exported_at`

	encMeta, err := r.sealMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("persistence: seal metadata for %s: %w", e.ID, err)
	}

	_, err = r.client.db.ExecContext(ctx, query,
		e.ID, e.TransactionID, e.Account.ID, e.Amount.Minor(), e.Currency,
		string(e.EntryType), e.Hash, e.PreviousHash, string(e.Status), encMeta, e.Timestamp, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("persistence: export entry %s: %w", e.ID, err)
	}
	return nil
}

// sealMetadata serializes and encrypts metadata, returning nil when
// there is nothing to seal or no box was configured.
func (r *EntryRepository) sealMetadata(metadata map[string]string) ([]byte, error) {
	if r.box == nil || len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	sealed, err := r.box.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return sealed, nil
}

// ExportEntries exports a batch of entries, stopping at the first
// failure.
func (r *EntryRepository) ExportEntries(ctx context.Context, entries []ledger.Entry) error {
	for _, e := range entries {
		if err := r.ExportEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// DecryptMetadata reverses sealMetadata, used by reconciliation tools
// that need to read back what ExportEntry sealed. It returns nil, nil
// when the repository has no box configured or sealed is empty.
func (r *EntryRepository) DecryptMetadata(sealed []byte) (map[string]string, error) {
	if r.box == nil || len(sealed) == 0 {
		return nil, nil
	}
	raw, err := r.box.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("persistence: open metadata: %w", err)
	}
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("persistence: unmarshal metadata: %w", err)
	}
	return metadata, nil
}

// CountByTransaction returns how many entries are durably recorded for
// txID, used by operators reconciling the in-memory store against the
// audit table.
func (r *EntryRepository) CountByTransaction(ctx context.Context, txID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM ledger_entries WHERE transaction_id = $1`
	var count int64
	if err := r.client.db.QueryRowContext(ctx, query, txID).Scan(&count); err != nil {
		return 0, fmt.Errorf("persistence: count by transaction %s: %w", txID, err)
	}
	return count, nil
}
