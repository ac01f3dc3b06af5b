package core

import "testing"

func TestRequiredFeeClampsBetweenMinAndMax(t *testing.T) {
	if got := RequiredFee(0); got.Cmp(MinFee) != 0 {
		t.Errorf("RequiredFee(0) = %s, want MinFee %s", got, MinFee)
	}
	if got := RequiredFee(999); got.Cmp(MinFee) != 0 {
		t.Errorf("RequiredFee(999) = %s, want MinFee %s", got, MinFee)
	}

	atThousand := RequiredFee(1000)
	if atThousand.Cmp(MinFee) <= 0 {
		t.Errorf("RequiredFee(1000) = %s, want strictly greater than MinFee %s", atThousand, MinFee)
	}

	// A very large depth must clamp at MaxFee, not grow unbounded.
	huge := RequiredFee(1_000_000)
	if huge.Cmp(MaxFee) != 0 {
		t.Errorf("RequiredFee(1_000_000) = %s, want clamped MaxFee %s", huge, MaxFee)
	}
}

func TestMempoolAdmitRejectsInsufficientBalance(t *testing.T) {
	l := newTestLedger(t, false)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(1))
	m := NewMempool(l)

	tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(100), MinFee, nil)
	if err := m.Admit(tx); err == nil {
		t.Fatalf("Admit accepted a transaction the sender cannot afford")
	}
	if m.Len() != 0 {
		t.Errorf("mempool depth = %d after rejected admission, want 0", m.Len())
	}
}

func TestMempoolAdmitRejectsDuplicate(t *testing.T) {
	l := newTestLedger(t, false)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(100))
	m := NewMempool(l)

	tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(5), MinFee, nil)
	if err := m.Admit(tx); err != nil {
		t.Fatalf("first Admit: %v", err)
	}
	if err := m.Admit(tx); err == nil {
		t.Fatalf("second Admit of the identical transaction should have been rejected")
	}
	if m.Len() != 1 {
		t.Errorf("mempool depth = %d, want 1", m.Len())
	}
}

func TestMempoolAdmitRejectsInvalidSignature(t *testing.T) {
	l := newTestLedger(t, false)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(100))
	m := NewMempool(l)

	tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(5), MinFee, nil)
	tx.Amount = NewRationalInt(50) // tamper after signing
	if err := m.Admit(tx); err == nil {
		t.Fatalf("Admit accepted a transaction with a signature mismatch")
	}
}

func TestMempoolPickIsFIFOAndDrains(t *testing.T) {
	l := newTestLedger(t, false)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(100))
	m := NewMempool(l)

	var sent []Hash
	for i := 0; i < 3; i++ {
		tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(1), MinFee, map[string]any{"i": float64(i)})
		if err := m.Admit(tx); err != nil {
			t.Fatalf("admit tx %d: %v", i, err)
		}
		sent = append(sent, tx.Hash)
	}

	picked := m.Pick(2)
	if len(picked) != 2 {
		t.Fatalf("Pick(2) returned %d transactions, want 2", len(picked))
	}
	for i, tx := range picked {
		if tx.Hash != sent[i] {
			t.Errorf("picked[%d] hash = %s, want %s (FIFO order)", i, tx.Hash, sent[i])
		}
	}
	if m.Len() != 1 {
		t.Errorf("mempool depth after partial pick = %d, want 1", m.Len())
	}

	rest := m.Pick(100)
	if len(rest) != 1 || rest[0].Hash != sent[2] {
		t.Fatalf("remaining pick did not return the last admitted transaction")
	}
	if m.Len() != 0 {
		t.Errorf("mempool depth after full drain = %d, want 0", m.Len())
	}
}

func TestMempoolRemove(t *testing.T) {
	l := newTestLedger(t, false)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(100))
	m := NewMempool(l)

	tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(5), MinFee, nil)
	if err := m.Admit(tx); err != nil {
		t.Fatalf("admit: %v", err)
	}
	m.Remove(tx.Hash)
	if m.Len() != 0 {
		t.Errorf("mempool depth after Remove = %d, want 0", m.Len())
	}
	snap := m.Snapshot()
	if len(snap) != 0 {
		t.Errorf("snapshot after Remove has %d entries, want 0", len(snap))
	}
}
