package core

// testhelpers_test.go – shared fixtures for the core package's test suite,
// in the style of the teacher's tmpLedgerConfig helper: a throwaway SQLite
// file under t.TempDir() per test, plus small builders for funded wallets
// and committed single-transaction blocks so individual tests can stay
// focused on the behaviour they're checking.

import (
	"testing"
)

func tmpLedgerConfig(t *testing.T, runGenesis bool) LedgerConfig {
	t.Helper()
	dir := t.TempDir()
	return LedgerConfig{StorePath: dir + "/ledger.db", RunGenesis: runGenesis}
}

func newTestLedger(t *testing.T, runGenesis bool) *Ledger {
	t.Helper()
	l, err := OpenLedger(tmpLedgerConfig(t, runGenesis))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	w, err := NewWallet()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	return w
}

// commitBlockOf finalizes and commits a block containing exactly txs,
// stacked on l's current tip, the same shape consensus.go's Producer.Tick
// builds.
func commitBlockOf(t *testing.T, l *Ledger, txs ...*Transaction) *Block {
	t.Helper()
	block := &Block{
		Index:        l.Height(),
		Transactions: txs,
		Timestamp:    NowMicro(),
		PreviousHash: l.HeadHash(),
		Validator:    ZeroAddress,
	}
	finalized, err := FinalizeBlock(block)
	if err != nil {
		t.Fatalf("finalize block: %v", err)
	}
	if err := l.CommitBlock(finalized); err != nil {
		t.Fatalf("commit block: %v", err)
	}
	return finalized
}

// fundReward credits recipient with amount of BRAINERS via a synthetic
// reward transaction, the same mechanism a Producer uses to pay block
// rewards — the simplest signature-free way to seed a test account.
func fundReward(t *testing.T, l *Ledger, recipient Address, amount *Rational) {
	t.Helper()
	tx := &Transaction{
		Sender:    ZeroAddress,
		Recipient: recipient,
		Amount:    amount,
		Kind:      TxReward,
		Fee:       Zero,
		Timestamp: NowMicro(),
	}
	h, err := tx.ComputeHash()
	if err != nil {
		t.Fatalf("hash reward tx: %v", err)
	}
	tx.Hash = h
	commitBlockOf(t, l, tx)
}

// newSignedTx builds and signs a transaction from w with the given kind,
// recipient, amount, fee and data. Timestamp is stamped at call time.
func newSignedTx(t *testing.T, w *Wallet, kind TxKind, recipient Address, amount, fee *Rational, data map[string]any) *Transaction {
	t.Helper()
	tx := &Transaction{
		Recipient: recipient,
		Amount:    amount,
		Kind:      kind,
		Fee:       fee,
		Data:      data,
		Timestamp: NowMicro(),
	}
	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("sign transaction: %v", err)
	}
	return tx
}
