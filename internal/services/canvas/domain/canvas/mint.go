package canvas

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/louisbranch/pixelfield/internal/services/canvas/domain/canvas/event"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
)

// MintResult reports the outcome of a mint request.
type MintResult struct {
	// Collectible is the token bound to the snapshot.
	Collectible Collectible
	// AlreadyMinted reports that the snapshot was bound before this call.
	// In that case Entry is zero, nothing was charged, and Collectible
	// holds the existing binding.
	AlreadyMinted bool
	// Entry is the sealed journal entry for a fresh mint.
	Entry event.Entry
}

// PriceUpdate reports a successful mint price change.
type PriceUpdate struct {
	// OldPrice is the price before the change.
	OldPrice uint64
	// NewPrice is the price after the change.
	NewPrice uint64
	// Entry is the sealed journal entry.
	Entry event.Entry
}

// WithdrawResult reports a successful treasury payout.
type WithdrawResult struct {
	// Amount is the balance that was paid out. Zero-balance withdrawals
	// succeed with amount zero.
	Amount uint64
	// Recipient is the account the funds went to.
	Recipient string
	// Entry is the sealed journal entry.
	Entry event.Entry
}

// MintCollectible binds a snapshot to the next token on behalf of its
// creator. Minting an already-bound snapshot is idempotent: the existing
// binding comes back unchanged, nothing is charged, and no entry is
// recorded. A fresh mint requires payment of at least the current price;
// the full payment is credited to the treasury.
func (l *Ledger) MintCollectible(ctx context.Context, snapshotID uint64, payer string, payment uint64, now uint64) (MintResult, error) {
	payer = strings.TrimSpace(payer)
	if payer == "" {
		return MintResult{}, ErrActorMissing
	}
	snap, err := l.Snapshot(snapshotID)
	if err != nil {
		return MintResult{}, err
	}
	if payer != snap.Creator {
		return MintResult{}, apperrors.WithMetadata(apperrors.CodeNotCreator,
			"only the snapshot creator may mint it", map[string]string{
				"snapshot_id": strconv.FormatUint(snapshotID, 10),
			})
	}
	if tokenID, ok := l.snapshotToken[snapshotID]; ok {
		return MintResult{Collectible: l.collectibles[tokenID], AlreadyMinted: true}, nil
	}
	if payment < l.mintPrice {
		return MintResult{}, apperrors.WithMetadata(apperrors.CodeInsufficientPayment,
			"payment is below the mint price", map[string]string{
				"price": strconv.FormatUint(l.mintPrice, 10),
				"paid":  strconv.FormatUint(payment, 10),
			})
	}
	if payment > math.MaxUint64-l.balance {
		return MintResult{}, apperrors.New(apperrors.CodeInvalidArgument, "payment overflows the treasury balance")
	}

	tokenID := uint64(len(l.collectibles)) + 1
	col := Collectible{
		TokenID:    tokenID,
		SnapshotID: snapshotID,
		Owner:      payer,
		Paid:       payment,
		MintedAt:   now,
	}

	payload, err := json.Marshal(event.CollectibleMintedPayload{
		TokenID:    tokenID,
		SnapshotID: snapshotID,
		Owner:      payer,
		Paid:       payment,
		At:         now,
	})
	if err != nil {
		return MintResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode mint payload", err)
	}

	entry, err := l.seal(ctx, event.Entry{
		At:          now,
		Type:        event.TypeCollectibleMinted,
		Actor:       payer,
		PayloadJSON: payload,
	})
	if err != nil {
		return MintResult{}, err
	}
	if err := l.record(ctx, entry); err != nil {
		return MintResult{}, err
	}

	l.collectibles[tokenID] = col
	l.snapshotToken[snapshotID] = tokenID
	l.balance += payment
	l.advance(entry)

	return MintResult{Collectible: col, Entry: entry}, nil
}

// SetMintPrice changes the mint price. Only the administrator may call
// it; snapshots minted before the change keep what they paid.
func (l *Ledger) SetMintPrice(ctx context.Context, price uint64, requestor string, now uint64) (PriceUpdate, error) {
	requestor = strings.TrimSpace(requestor)
	if requestor == "" {
		return PriceUpdate{}, ErrActorMissing
	}
	if requestor != l.admin {
		return PriceUpdate{}, ErrNotAuthorized
	}

	payload, err := json.Marshal(event.PriceUpdatedPayload{
		OldPrice:  l.mintPrice,
		NewPrice:  price,
		Requestor: requestor,
	})
	if err != nil {
		return PriceUpdate{}, apperrors.Wrap(apperrors.CodeInternal, "encode price payload", err)
	}

	entry, err := l.seal(ctx, event.Entry{
		At:          now,
		Type:        event.TypePriceUpdated,
		Actor:       requestor,
		PayloadJSON: payload,
	})
	if err != nil {
		return PriceUpdate{}, err
	}
	if err := l.record(ctx, entry); err != nil {
		return PriceUpdate{}, err
	}

	old := l.mintPrice
	l.mintPrice = price
	l.advance(entry)

	return PriceUpdate{OldPrice: old, NewPrice: price, Entry: entry}, nil
}

// Withdraw pays the accumulated balance to the administrator through the
// payout sink. Only the administrator may call it. A zero balance
// withdraws trivially without touching the sink. The sink is paid before
// the entry is recorded, so an entry exists only for payouts that
// actually happened; if recording then fails, the balance stays put and
// the operator reconciles against the sink's own records.
func (l *Ledger) Withdraw(ctx context.Context, requestor string, now uint64) (WithdrawResult, error) {
	requestor = strings.TrimSpace(requestor)
	if requestor == "" {
		return WithdrawResult{}, ErrActorMissing
	}
	if requestor != l.admin {
		return WithdrawResult{}, ErrNotAuthorized
	}

	amount := l.balance
	if amount > 0 {
		if l.payout == nil {
			return WithdrawResult{}, apperrors.New(apperrors.CodeWithdrawFailed, "no payout sink is configured")
		}
		if err := l.payout.Pay(ctx, l.admin, amount); err != nil {
			return WithdrawResult{}, apperrors.WrapWithMetadata(apperrors.CodeWithdrawFailed,
				"payout transfer was rejected", map[string]string{
					"amount": strconv.FormatUint(amount, 10),
				}, err)
		}
	}

	payload, err := json.Marshal(event.TreasuryWithdrawnPayload{
		Amount:    amount,
		Recipient: l.admin,
		At:        now,
	})
	if err != nil {
		return WithdrawResult{}, apperrors.Wrap(apperrors.CodeInternal, "encode withdraw payload", err)
	}

	entry, err := l.seal(ctx, event.Entry{
		At:          now,
		Type:        event.TypeTreasuryWithdrawn,
		Actor:       requestor,
		PayloadJSON: payload,
	})
	if err != nil {
		return WithdrawResult{}, err
	}
	if err := l.record(ctx, entry); err != nil {
		return WithdrawResult{}, err
	}

	l.balance = 0
	l.advance(entry)

	return WithdrawResult{Amount: amount, Recipient: l.admin, Entry: entry}, nil
}

// Collectible returns a collectible by token ID.
func (l *Ledger) Collectible(tokenID uint64) (Collectible, error) {
	col, ok := l.collectibles[tokenID]
	if !ok {
		return Collectible{}, apperrors.WithMetadata(apperrors.CodeCollectibleNotFound,
			"collectible does not exist", map[string]string{
				"token_id": strconv.FormatUint(tokenID, 10),
			})
	}
	return col, nil
}

// CollectibleForSnapshot returns the collectible bound to a snapshot.
func (l *Ledger) CollectibleForSnapshot(snapshotID uint64) (Collectible, bool) {
	tokenID, ok := l.snapshotToken[snapshotID]
	if !ok {
		return Collectible{}, false
	}
	return l.collectibles[tokenID], true
}

// CollectibleCount returns the number of minted collectibles.
func (l *Ledger) CollectibleCount() int {
	return len(l.collectibles)
}
