package core

// ttf.go – leveraged token futures (TTF): one synthetic market per listed
// token, opened once its DEX pool holds at least MinLiquidityTTF BRAINERS,
// settled against the protocol-wide TTFSinkAddress counterparty rather than
// a matched peer order (spec.md §4.3 "Liquidation (TTF)").
//
// Grounded on the teacher's core/stake_penalty.go shape (a map-keyed
// position registry, performance numbers carried alongside balances, no
// separate mutex — the ledger's own lock covers it), re-purposed here from
// validator slashing bookkeeping to margin-position bookkeeping.

import (
	"fmt"

	"github.com/google/uuid"
)

// Future is one token's leveraged market, opened by create_future.
type Future struct {
	TokenID   string `json:"token_id"`
	CreatedAt int64  `json:"created_at"`
}

// Position is one trader's open leveraged exposure on a Future.
type Position struct {
	ID         string    `json:"id"`
	Owner      Address   `json:"owner"`
	TokenID    string    `json:"token_id"`
	Long       bool      `json:"long"`
	Notional   *Rational `json:"notional"`
	Leverage   int64     `json:"leverage"`
	Collateral *Rational `json:"collateral"`
	EntryPrice *Rational `json:"entry_price"`
	OpenedAt   int64     `json:"opened_at"`
}

// TTFState is the ledger's futures sub-ledger.
type TTFState struct {
	Futures   map[string]*Future   `json:"futures"`
	Positions map[string]*Position `json:"positions"`
}

func newTTFState() *TTFState {
	return &TTFState{
		Futures:   make(map[string]*Future),
		Positions: make(map[string]*Position),
	}
}

// --- create_future -----------------------------------------------------------

// applyCreateFuture opens a leveraged market on tokenID once its DEX pool
// holds at least MinLiquidityTTF BRAINERS (spec.md §4.3).
func applyCreateFuture(l *Ledger, tx *Transaction) error {
	tokenID, err := dataString(tx, "token")
	if err != nil {
		return err
	}
	if _, ok := l.tokens[tokenID]; !ok {
		return ErrUnknownToken
	}
	pool, ok := l.dex.Pools[tokenID]
	if !ok || pool.BrainersRes.Cmp(MinLiquidityTTF) < 0 {
		return ErrBelowMinimumLiquidity
	}
	if err := debit(l, tx.Sender, BrainersTokenID, tx.Fee); err != nil {
		return err
	}
	burnFee(l, BrainersTokenID, tx.Fee)

	if _, exists := l.ttf.Futures[tokenID]; !exists {
		l.ttf.Futures[tokenID] = &Future{TokenID: tokenID, CreatedAt: tx.Timestamp}
	}
	return nil
}

// --- open_position / close_position ------------------------------------------

// applyOpenPosition locks collateral = notional / leverage from the sender
// and records a position against an oracle-supplied entry price. Consensus
// has no separate price-feed transaction, so the opening price travels with
// the transaction itself (Data["price"]) and every node applies the same
// value deterministically.
func applyOpenPosition(l *Ledger, tx *Transaction) error {
	tokenID, err := dataString(tx, "token")
	if err != nil {
		return err
	}
	if _, ok := l.ttf.Futures[tokenID]; !ok {
		return fmt.Errorf("state transition: no future market for token %q", tokenID)
	}
	leverage, err := dataInt64(tx, "leverage")
	if err != nil {
		return err
	}
	if leverage < 1 {
		return fmt.Errorf("state transition: open_position leverage must be >= 1")
	}
	long, _ := dataBool(tx, "long")
	price, err := dataRational(tx, "price")
	if err != nil {
		return err
	}

	collateral := tx.Amount.Quo(NewRationalInt(leverage))
	total := collateral.Add(tx.Fee)
	if err := debit(l, tx.Sender, BrainersTokenID, total); err != nil {
		return err
	}
	burnFee(l, BrainersTokenID, tx.Fee)

	pos := &Position{
		ID:         uuid.NewString(),
		Owner:      tx.Sender,
		TokenID:    tokenID,
		Long:       long,
		Notional:   tx.Amount,
		Leverage:   leverage,
		Collateral: collateral,
		EntryPrice: price,
		OpenedAt:   tx.Timestamp,
	}
	l.ttf.Positions[pos.ID] = pos
	return nil
}

// applyClosePosition settles a position's pnl against TTFSinkAddress and
// returns whatever collateral remains to the owner. A loss that reaches or
// exceeds LiquidationThreshold of the posted collateral is clamped to a
// total loss (spec.md §4.3): the trader is liquidated, not left owing.
func applyClosePosition(l *Ledger, tx *Transaction) error {
	positionID, err := dataString(tx, "position_id")
	if err != nil {
		return err
	}
	pos, ok := l.ttf.Positions[positionID]
	if !ok {
		return ErrPositionNotFound
	}
	if pos.Owner != tx.Sender {
		return ErrVaultNotOwned
	}
	exitPrice, err := dataRational(tx, "price")
	if err != nil {
		return err
	}
	if err := debit(l, tx.Sender, BrainersTokenID, tx.Fee); err != nil {
		return err
	}
	burnFee(l, BrainersTokenID, tx.Fee)

	priceDiff := exitPrice.Sub(pos.EntryPrice)
	if !pos.Long {
		priceDiff = priceDiff.Neg()
	}
	pnl := pos.Notional.Mul(NewRationalInt(pos.Leverage)).Mul(priceDiff)

	liquidationPoint := pos.Collateral.Mul(LiquidationThreshold).Neg()
	payout := pos.Collateral.Add(pnl)
	liquidated := pnl.Cmp(liquidationPoint) <= 0
	if liquidated || payout.Sign() < 0 {
		payout = Zero
	}

	sink := l.accountLocked(TTFSinkAddress)
	sink.Balances[BrainersTokenID] = sink.Balance(BrainersTokenID).Sub(pnl)

	if payout.Sign() > 0 {
		credit(l, tx.Sender, BrainersTokenID, payout)
	}
	delete(l.ttf.Positions, positionID)
	return nil
}
