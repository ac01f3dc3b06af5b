package core

import "testing"

func TestCreateFutureRequiresMinimumLiquidity(t *testing.T) {
	l := newTestLedger(t, false)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(1_000))
	tokenAddr := createTestToken(t, l, w, "THIN", NewRationalInt(1_000_000))

	tx := newSignedTx(t, w, TxCreateFuture, w.Address, Zero, MinFee, map[string]any{"token": tokenAddr})
	block := &Block{Index: l.Height(), Transactions: []*Transaction{tx}, Timestamp: NowMicro(), PreviousHash: l.HeadHash(), Validator: ZeroAddress}
	finalized, err := FinalizeBlock(block)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := l.CommitBlock(finalized); err == nil {
		t.Fatalf("expected create_future to fail with no DEX liquidity at all")
	}
}

func openLiquidFuture(t *testing.T, l *Ledger, provider *Wallet, symbol string) string {
	t.Helper()
	tokenAddr := createTestToken(t, l, provider, symbol, NewRationalInt(2_000_000))
	addTx := newSignedTx(t, provider, TxAddLiquidity, provider.Address, NewRationalInt(900_000), MinFee, map[string]any{
		"token":        tokenAddr,
		"token_amount": "900000",
	})
	commitBlockOf(t, l, addTx)

	futTx := newSignedTx(t, provider, TxCreateFuture, provider.Address, Zero, MinFee, map[string]any{"token": tokenAddr})
	commitBlockOf(t, l, futTx)
	return tokenAddr
}

func TestOpenAndCloseWinningPosition(t *testing.T) {
	l := newTestLedger(t, false)
	provider := newTestWallet(t)
	fundReward(t, l, provider.Address, NewRationalInt(2_000_000))
	tokenAddr := openLiquidFuture(t, l, provider, "FUT1")

	trader := newTestWallet(t)
	fundReward(t, l, trader.Address, NewRationalInt(10_000))

	openTx := newSignedTx(t, trader, TxOpenPosition, trader.Address, NewRationalInt(1_000), MinFee, map[string]any{
		"token":    tokenAddr,
		"leverage": float64(5),
		"long":     true,
		"price":    "10",
	})
	commitBlockOf(t, l, openTx)

	positionID, pos := onlyPosition(l)
	if pos == nil {
		t.Fatalf("no open position recorded")
	}
	wantCollateral := NewRationalInt(1_000).Quo(NewRationalInt(5))
	if pos.Collateral.Cmp(wantCollateral) != 0 {
		t.Errorf("collateral = %s, want %s", pos.Collateral, wantCollateral)
	}

	closeTx := newSignedTx(t, trader, TxClosePosition, trader.Address, Zero, MinFee, map[string]any{
		"position_id": positionID,
		"price":       "11", // entry 10 -> +10% on a long, in-the-money
	})
	balBefore := l.BalanceOf(trader.Address, BrainersTokenID)
	commitBlockOf(t, l, closeTx)
	balAfter := l.BalanceOf(trader.Address, BrainersTokenID)

	if balAfter.Cmp(balBefore) <= 0 {
		t.Errorf("balance did not increase after closing a winning long position: before %s after %s", balBefore, balAfter)
	}
	if _, stillOpen := onlyPosition(l); stillOpen != nil {
		t.Errorf("position still present after close")
	}
}

func TestClosePositionLiquidatesBeyondThreshold(t *testing.T) {
	l := newTestLedger(t, false)
	provider := newTestWallet(t)
	fundReward(t, l, provider.Address, NewRationalInt(2_000_000))
	tokenAddr := openLiquidFuture(t, l, provider, "FUT2")

	trader := newTestWallet(t)
	fundReward(t, l, trader.Address, NewRationalInt(10_000))

	// 10x leverage long on 1000 notional: pnl = 1000 × 10 × (exit − entry),
	// so any exit more than 0.008 below entry reaches −80, the liquidation
	// point (LiquidationThreshold = 80/100 of the 100 collateral), and the
	// whole collateral is forfeited.
	openTx := newSignedTx(t, trader, TxOpenPosition, trader.Address, NewRationalInt(1_000), MinFee, map[string]any{
		"token":    tokenAddr,
		"leverage": float64(10),
		"long":     true,
		"price":    "10",
	})
	commitBlockOf(t, l, openTx)
	positionID, _ := onlyPosition(l)

	closeTx := newSignedTx(t, trader, TxClosePosition, trader.Address, Zero, MinFee, map[string]any{
		"position_id": positionID,
		"price":       "5", // entry 10 -> -50% on a long: far past liquidation
	})
	balBefore := l.BalanceOf(trader.Address, BrainersTokenID)
	commitBlockOf(t, l, closeTx)

	// Liquidated: no collateral comes back, so the close costs only its fee.
	if got, want := l.BalanceOf(trader.Address, BrainersTokenID), balBefore.Sub(MinFee); got.Cmp(want) != 0 {
		t.Errorf("balance after liquidation = %s, want %s", got, want)
	}
	if _, pos := onlyPosition(l); pos != nil {
		t.Fatalf("liquidated position should still be removed from the registry")
	}
}

func TestClosePositionRejectsWrongOwner(t *testing.T) {
	l := newTestLedger(t, false)
	provider := newTestWallet(t)
	fundReward(t, l, provider.Address, NewRationalInt(2_000_000))
	tokenAddr := openLiquidFuture(t, l, provider, "FUT3")

	trader := newTestWallet(t)
	other := newTestWallet(t)
	fundReward(t, l, trader.Address, NewRationalInt(10_000))
	fundReward(t, l, other.Address, NewRationalInt(10_000))

	openTx := newSignedTx(t, trader, TxOpenPosition, trader.Address, NewRationalInt(1_000), MinFee, map[string]any{
		"token":    tokenAddr,
		"leverage": float64(2),
		"long":     true,
		"price":    "10",
	})
	commitBlockOf(t, l, openTx)
	positionID, _ := onlyPosition(l)

	closeTx := newSignedTx(t, other, TxClosePosition, other.Address, Zero, MinFee, map[string]any{
		"position_id": positionID,
		"price":       "10",
	})
	block := &Block{Index: l.Height(), Transactions: []*Transaction{closeTx}, Timestamp: NowMicro(), PreviousHash: l.HeadHash(), Validator: ZeroAddress}
	finalized, err := FinalizeBlock(block)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := l.CommitBlock(finalized); err == nil {
		t.Fatalf("expected close_position from a non-owner to fail")
	}
}

func onlyPosition(l *Ledger) (string, *Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, pos := range l.ttf.Positions {
		return id, pos
	}
	return "", nil
}
