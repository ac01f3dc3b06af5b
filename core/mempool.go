package core

// mempool.go – deduplicated, FIFO-ordered pool of admissible pending
// transactions (spec.md §4.2).
//
// Grounded on the teacher's TxPool (core/transactions.go): a hash-keyed
// lookup map plus a FIFO slice, guarded by its own mutex, with an
// AddTx/Pick/Snapshot surface. Re-keyed to this ledger's Account-based
// balance model instead of UTXOs, and to the spec's depth-based fee
// formula instead of gas.

import (
	"fmt"
	"sync"
)

// Mempool holds transactions that have passed admission but have not yet
// been included in a committed block.
type Mempool struct {
	mu     sync.Mutex
	ledger *Ledger
	lookup map[Hash]*Transaction
	queue  []*Transaction
}

// NewMempool creates an empty mempool backed by ledger for balance and
// signature checks at admission time.
func NewMempool(ledger *Ledger) *Mempool {
	return &Mempool{
		ledger: ledger,
		lookup: make(map[Hash]*Transaction),
	}
}

// RequiredFee computes the fee a transaction admitted at the given mempool
// depth must carry: clamp(MIN_FEE × (3/2)^⌊depth/1000⌋, MIN_FEE, MAX_FEE)
// (spec.md §4.2). Nodes never recompute a fee to validate an already-
// admitted transaction — only to tell a submitting client what to attach.
func RequiredFee(depth int) *Rational {
	steps := depth / 1000
	fee := MinFee
	threeHalves := mustFrac(3, 2)
	for i := 0; i < steps; i++ {
		fee = fee.Mul(threeHalves)
	}
	return fee.Clamp(MinFee, MaxFee)
}

// Admit validates tx (signature, balance, not-already-present) and appends
// it to the pool. Per spec.md §4.2, the fee actually carried by tx is used
// as-is — Admit never overwrites or recomputes tx.Fee.
func (m *Mempool) Admit(tx *Transaction) error {
	if tx == nil {
		return fmt.Errorf("mempool: nil transaction")
	}
	if err := tx.VerifySig(m.ledger.PublicKeys()); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.lookup[tx.Hash]; exists {
		return fmt.Errorf("mempool: transaction %s already pending", tx.IDHex())
	}

	if tx.Kind != TxGenesis && tx.Kind != TxReward {
		tokenID := spendTokenOf(tx)
		required := tx.Amount.Add(tx.Fee)
		have := m.ledger.BalanceOf(tx.Sender, tokenID)
		if have.Cmp(required) < 0 {
			return ErrInsufficientBalance
		}
	}

	m.lookup[tx.Hash] = tx
	m.queue = append(m.queue, tx)
	return nil
}

// spendTokenOf returns the token a transaction debits from its sender for
// the purposes of the admission balance check. Every kind except
// create_token, place_order, execute_contract and create_vault spends
// BRAINERS; those four carry their own token in Data and are checked by
// state_transition.go instead, so the mempool only enforces the common
// case here — a create_vault escrowing a non-BRAINERS token may be
// admitted on a correct BRAINERS balance and still fail at commit time if
// the vault token balance is short, the same imprecision the other three
// kinds already accept.
func spendTokenOf(tx *Transaction) string { return BrainersTokenID }

// Pick removes up to max transactions from the pool head in FIFO order,
// the ordering spec.md §4.2 requires for block inclusion.
func (m *Mempool) Pick(max int) []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if max <= 0 || max > len(m.queue) {
		max = len(m.queue)
	}
	out := make([]*Transaction, max)
	copy(out, m.queue[:max])
	m.queue = m.queue[max:]
	for _, tx := range out {
		delete(m.lookup, tx.Hash)
	}
	return out
}

// Remove drops a transaction from the pool without returning it; a hash
// that is not pending is ignored.
func (m *Mempool) Remove(hash Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup[hash]; !ok {
		return
	}
	delete(m.lookup, hash)
	for i, tx := range m.queue {
		if tx.Hash == hash {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
}

// Len returns the current pool depth, the input to RequiredFee.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Snapshot returns a copy of all pending transactions for inspection.
func (m *Mempool) Snapshot() []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Transaction, len(m.queue))
	copy(out, m.queue)
	return out
}
