package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage"
)

// Record appends a sealed journal entry and applies its state delta in
// a single transaction. A failure of any step leaves neither the entry
// nor the delta behind.
func (s *Store) Record(ctx context.Context, entry event.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if entry.Seq == 0 {
		return fmt.Errorf("entry is not sealed")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var nextSeq int64
	err = tx.QueryRowContext(ctx, `SELECT next_event_seq FROM ledger_settings WHERE id = 1`).Scan(&nextSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store is not initialized")
		}
		return fmt.Errorf("load next sequence: %w", err)
	}
	if int64(entry.Seq) != nextSeq {
		return storage.ErrSeqConflict
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO canvas_events (
		   seq, kind, actor, request_id, payload_json, hash, prev_hash,
		   chain_hash, at, recorded_at_unix_ms
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(entry.Seq),
		string(entry.Type),
		entry.Actor,
		entry.RequestID,
		string(entry.PayloadJSON),
		entry.Hash,
		entry.PrevHash,
		entry.ChainHash,
		int64(entry.At),
		toMillis(time.Now()),
	); err != nil {
		if isConstraintError(err) {
			return storage.ErrSeqConflict
		}
		return fmt.Errorf("append journal entry: %w", err)
	}

	if err := applyEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE ledger_settings SET next_event_seq = ?, updated_at_unix_ms = ? WHERE id = 1`,
		int64(entry.Seq)+1,
		toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("advance journal sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// applyEntryTx writes the state delta an entry stands for. Entry
// payloads carry everything the delta needs, so this never consults
// state outside the transaction.
func applyEntryTx(ctx context.Context, tx *sql.Tx, entry event.Entry) error {
	switch entry.Type {
	case event.TypeCellPlaced:
		var p event.CellPlacedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode cell placement: %w", entry.Seq, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO canvas_cells (idx, value, last_writer, last_write_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(idx) DO UPDATE SET
			   value = excluded.value,
			   last_writer = excluded.last_writer,
			   last_write_at = excluded.last_write_at`,
			int64(p.Index),
			int64(p.Value),
			p.Actor,
			int64(p.At),
		); err != nil {
			return fmt.Errorf("entry %d: write cell: %w", entry.Seq, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO actor_cooldowns (actor, last_action_at)
			 VALUES (?, ?)
			 ON CONFLICT(actor) DO UPDATE SET last_action_at = excluded.last_action_at`,
			p.Actor,
			int64(p.At),
		); err != nil {
			return fmt.Errorf("entry %d: write cooldown: %w", entry.Seq, err)
		}

	case event.TypeCooldownUpdated:
		var p event.CooldownUpdatedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode cooldown update: %w", entry.Seq, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE ledger_settings SET cooldown_seconds = ? WHERE id = 1`,
			int64(p.NewSeconds),
		); err != nil {
			return fmt.Errorf("entry %d: write cooldown duration: %w", entry.Seq, err)
		}

	case event.TypeSnapshotCreated, event.TypeSnapshotComposed:
		var p event.SnapshotRegisteredPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode snapshot registration: %w", entry.Seq, err)
		}
		composed := 0
		if p.Composed {
			composed = 1
		}
		var payload []byte
		if len(p.Payload) > 0 {
			payload = []byte(p.Payload)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO snapshots (id, content_hash, creator, ordinal, created_at, image_ref, composed, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(p.SnapshotID),
			p.ContentHash,
			p.Creator,
			int64(p.Ordinal),
			int64(p.At),
			p.ImageRef,
			composed,
			payload,
		); err != nil {
			return fmt.Errorf("entry %d: write snapshot: %w", entry.Seq, err)
		}

	case event.TypeCollectibleMinted:
		var p event.CollectibleMintedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode mint: %w", entry.Seq, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO collectibles (token_id, snapshot_id, owner, paid, minted_at)
			 VALUES (?, ?, ?, ?, ?)`,
			int64(p.TokenID),
			int64(p.SnapshotID),
			p.Owner,
			int64(p.Paid),
			int64(p.At),
		); err != nil {
			return fmt.Errorf("entry %d: write collectible: %w", entry.Seq, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE ledger_settings SET balance = balance + ? WHERE id = 1`,
			int64(p.Paid),
		); err != nil {
			return fmt.Errorf("entry %d: credit treasury: %w", entry.Seq, err)
		}

	case event.TypePriceUpdated:
		var p event.PriceUpdatedPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode price update: %w", entry.Seq, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE ledger_settings SET mint_price = ? WHERE id = 1`,
			int64(p.NewPrice),
		); err != nil {
			return fmt.Errorf("entry %d: write mint price: %w", entry.Seq, err)
		}

	case event.TypeTreasuryWithdrawn:
		var p event.TreasuryWithdrawnPayload
		if err := json.Unmarshal(entry.PayloadJSON, &p); err != nil {
			return fmt.Errorf("entry %d: decode withdrawal: %w", entry.Seq, err)
		}
		res, err := tx.ExecContext(
			ctx,
			`UPDATE ledger_settings SET balance = balance - ? WHERE id = 1 AND balance >= ?`,
			int64(p.Amount),
			int64(p.Amount),
		)
		if err != nil {
			return fmt.Errorf("entry %d: debit treasury: %w", entry.Seq, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("entry %d: debit treasury: %w", entry.Seq, err)
		}
		if affected != 1 {
			return fmt.Errorf("entry %d: withdrawal %d exceeds the stored balance", entry.Seq, p.Amount)
		}

	default:
		return fmt.Errorf("entry %d: unhandled type %q", entry.Seq, entry.Type)
	}
	return nil
}

// ListEntries returns journal entries with sequence greater than
// afterSeq, ascending, at most limit.
func (s *Store) ListEntries(ctx context.Context, afterSeq uint64, limit int) ([]event.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT seq, kind, actor, request_id, payload_json, hash, prev_hash, chain_hash, at
		   FROM canvas_events
		  WHERE seq > ?
		  ORDER BY seq ASC
		  LIMIT ?`,
		int64(afterSeq),
		int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	entries := make([]event.Entry, 0, limit)
	for rows.Next() {
		var (
			seq     int64
			kind    string
			at      int64
			payload []byte
			entry   event.Entry
		)
		if err := rows.Scan(&seq, &kind, &entry.Actor, &entry.RequestID, &payload, &entry.Hash, &entry.PrevHash, &entry.ChainHash, &at); err != nil {
			return nil, fmt.Errorf("list journal entries: %w", err)
		}
		entry.Seq = uint64(seq)
		entry.Type = event.Type(kind)
		entry.At = uint64(at)
		entry.PayloadJSON = payload
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}

// VerifyEntries recomputes every entry hash and chain link, and checks
// the journal tail against the stored next sequence.
func (s *Store) VerifyEntries(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	var verifier storage.ChainVerifier
	for {
		entries, err := s.ListEntries(ctx, verifier.Seq(), 200)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			break
		}
		for _, entry := range entries {
			if err := verifier.Check(entry); err != nil {
				return err
			}
		}
	}

	var nextSeq int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT next_event_seq FROM ledger_settings WHERE id = 1`).Scan(&nextSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load next sequence: %w", err)
	}
	if int64(verifier.Seq())+1 != nextSeq {
		return fmt.Errorf("journal tail %d disagrees with next sequence %d", verifier.Seq(), nextSeq)
	}
	return nil
}
