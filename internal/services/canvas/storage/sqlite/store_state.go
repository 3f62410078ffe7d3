package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas"
	"github.com/louisbranch/pixelfield/internal/services/canvas/storage"
)

// InitState seeds an empty ledger from a configuration. The cells table
// stays empty: a missing row reads back as an unplaced cell.
func (s *Store) InitState(ctx context.Context, cfg canvas.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := canvas.NormalizeConfig(cfg)
	if err != nil {
		return err
	}

	now := toMillis(time.Now())
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO ledger_settings (
		   id, width, height, palette_size, cooldown_seconds, admin_actor,
		   mint_price, balance, next_event_seq, created_at_unix_ms, updated_at_unix_ms
		 ) VALUES (1, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?)`,
		normalized.Width,
		normalized.Height,
		normalized.PaletteSize,
		int64(normalized.CooldownSeconds),
		normalized.Admin,
		int64(normalized.MintPrice),
		now,
		now,
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrAlreadyInitialized
		}
		return fmt.Errorf("init ledger settings: %w", err)
	}
	return nil
}

// LoadState returns the persisted ledger for boot.
func (s *Store) LoadState(ctx context.Context) (storage.PersistedLedger, error) {
	if err := ctx.Err(); err != nil {
		return storage.PersistedLedger{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.PersistedLedger{}, fmt.Errorf("storage is not configured")
	}

	var (
		width           int
		height          int
		paletteSize     int
		cooldownSeconds int64
		admin           string
		mintPrice       int64
		balance         int64
		nextSeq         int64
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT width, height, palette_size, cooldown_seconds, admin_actor,
		        mint_price, balance, next_event_seq
		   FROM ledger_settings
		  WHERE id = 1`,
	)
	if err := row.Scan(&width, &height, &paletteSize, &cooldownSeconds, &admin, &mintPrice, &balance, &nextSeq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PersistedLedger{}, storage.ErrNotFound
		}
		return storage.PersistedLedger{}, fmt.Errorf("load ledger settings: %w", err)
	}

	cfg := canvas.Config{
		Width:           width,
		Height:          height,
		PaletteSize:     paletteSize,
		CooldownSeconds: uint64(cooldownSeconds),
		Admin:           admin,
		MintPrice:       uint64(mintPrice),
	}
	state := canvas.State{
		Cells:           make([]canvas.Cell, width*height),
		Cooldowns:       make(map[string]uint64),
		CooldownSeconds: uint64(cooldownSeconds),
		MintPrice:       uint64(mintPrice),
		Balance:         uint64(balance),
	}

	if err := s.loadCells(ctx, &state); err != nil {
		return storage.PersistedLedger{}, err
	}
	if err := s.loadCooldowns(ctx, &state); err != nil {
		return storage.PersistedLedger{}, err
	}
	if err := s.loadSnapshots(ctx, &state); err != nil {
		return storage.PersistedLedger{}, err
	}
	if err := s.loadCollectibles(ctx, &state); err != nil {
		return storage.PersistedLedger{}, err
	}

	var lastSeq int64
	var lastChain string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT seq, chain_hash FROM canvas_events ORDER BY seq DESC LIMIT 1`,
	).Scan(&lastSeq, &lastChain)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storage.PersistedLedger{}, fmt.Errorf("load journal tail: %w", err)
	}
	if nextSeq != lastSeq+1 {
		return storage.PersistedLedger{}, fmt.Errorf("journal tail %d disagrees with next sequence %d", lastSeq, nextSeq)
	}
	state.LastEntrySeq = uint64(lastSeq)
	state.LastChainHash = lastChain

	return storage.PersistedLedger{Config: cfg, State: state}, nil
}

func (s *Store) loadCells(ctx context.Context, state *canvas.State) error {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT idx, value, last_writer, last_write_at FROM canvas_cells ORDER BY idx ASC`,
	)
	if err != nil {
		return fmt.Errorf("load cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx         int64
			value       int64
			lastWriter  string
			lastWriteAt int64
		)
		if err := rows.Scan(&idx, &value, &lastWriter, &lastWriteAt); err != nil {
			return fmt.Errorf("load cells: %w", err)
		}
		if idx < 0 || idx >= int64(len(state.Cells)) {
			return fmt.Errorf("load cells: index %d outside %d cells", idx, len(state.Cells))
		}
		state.Cells[idx] = canvas.Cell{
			Value:       uint8(value),
			LastWriter:  lastWriter,
			LastWriteAt: uint64(lastWriteAt),
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load cells: %w", err)
	}
	return nil
}

func (s *Store) loadCooldowns(ctx context.Context, state *canvas.State) error {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT actor, last_action_at FROM actor_cooldowns`,
	)
	if err != nil {
		return fmt.Errorf("load cooldowns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var actor string
		var last int64
		if err := rows.Scan(&actor, &last); err != nil {
			return fmt.Errorf("load cooldowns: %w", err)
		}
		state.Cooldowns[actor] = uint64(last)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load cooldowns: %w", err)
	}
	return nil
}

func (s *Store) loadSnapshots(ctx context.Context, state *canvas.State) error {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, content_hash, creator, ordinal, created_at, image_ref, composed, payload
		   FROM snapshots
		  ORDER BY id ASC`,
	)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			contentHash string
			creator     string
			ordinal     int64
			createdAt   int64
			imageRef    string
			composed    int64
			payload     []byte
		)
		if err := rows.Scan(&id, &contentHash, &creator, &ordinal, &createdAt, &imageRef, &composed, &payload); err != nil {
			return fmt.Errorf("load snapshots: %w", err)
		}
		snap := canvas.Snapshot{
			ID:          uint64(id),
			ContentHash: contentHash,
			Creator:     creator,
			Ordinal:     uint64(ordinal),
			CreatedAt:   uint64(createdAt),
			ImageRef:    imageRef,
			Composed:    composed != 0,
		}
		if len(payload) > 0 {
			snap.Payload = append([]uint8(nil), payload...)
		}
		state.Snapshots = append(state.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	return nil
}

func (s *Store) loadCollectibles(ctx context.Context, state *canvas.State) error {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT token_id, snapshot_id, owner, paid, minted_at
		   FROM collectibles
		  ORDER BY token_id ASC`,
	)
	if err != nil {
		return fmt.Errorf("load collectibles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tokenID    int64
			snapshotID int64
			owner      string
			paid       int64
			mintedAt   int64
		)
		if err := rows.Scan(&tokenID, &snapshotID, &owner, &paid, &mintedAt); err != nil {
			return fmt.Errorf("load collectibles: %w", err)
		}
		state.Collectibles = append(state.Collectibles, canvas.Collectible{
			TokenID:    uint64(tokenID),
			SnapshotID: uint64(snapshotID),
			Owner:      owner,
			Paid:       uint64(paid),
			MintedAt:   uint64(mintedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load collectibles: %w", err)
	}
	return nil
}
