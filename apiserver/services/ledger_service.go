package services

import (
	"fmt"

	core "brainersd/core"
)

// LedgerService is the query/submission facade the HTTP controllers use.
// It wraps a running node's ledger, mempool, and peer-broadcast path —
// the same "thin service wrapping core" shape as the teacher's
// walletserver/services/wallet_service.go, re-themed from wallet
// operations to ledger reads and transaction admission.
type LedgerService struct {
	node *core.ValidatorNode
}

func NewLedgerService(node *core.ValidatorNode) *LedgerService {
	return &LedgerService{node: node}
}

// Balance returns addr's balance of token, or zero for an address that has
// never held one — spec.md §6 lists no 404 case for /balance, unlike the
// transaction/block/token/validator lookups.
func (s *LedgerService) Balance(addr core.Address, token string) *core.Rational {
	return s.node.Ledger.BalanceOf(addr, token)
}

func (s *LedgerService) Transaction(hash core.Hash) (*core.Transaction, *core.Block, bool) {
	return s.node.Ledger.TransactionByHash(hash)
}

func (s *LedgerService) Block(hash core.Hash) (*core.Block, bool) {
	return s.node.Ledger.BlockByHash(hash)
}

func (s *LedgerService) Token(addr string) (*core.Token, bool) {
	return s.node.Ledger.Token(addr)
}

func (s *LedgerService) Validator(addr core.Address) (*core.Validator, bool) {
	return s.node.Ledger.Validator(addr)
}

func (s *LedgerService) State() core.StateSnapshot {
	return core.StateSnapshot{
		Height:    s.node.Ledger.Height(),
		HeadHash:  s.node.Ledger.HeadHash().String(),
		StateRoot: s.node.Ledger.StateRoot().String(),
	}
}

// Submit admits a caller-signed transaction into the mempool and gossips
// it to peers. forcedKind, when non-empty, overrides whatever kind the
// caller's JSON body carried — the kind-specific endpoints (/stake,
// /unstake, /burn, ...) pin this so a malformed or missing "kind" field
// in the request body can't smuggle in a different transaction type.
func (s *LedgerService) Submit(tx *core.Transaction, forcedKind core.TxKind) error {
	if tx == nil {
		return fmt.Errorf("apiserver: empty transaction body")
	}
	if forcedKind != "" {
		tx.Kind = forcedKind
	}
	return s.node.SubmitTransaction(tx)
}

// RegisterContract deploys a new contract's ABI under owner.
func (s *LedgerService) RegisterContract(owner core.Address, abi []core.ABIMethod) *core.SmartContract {
	return s.node.Ledger.RegisterContract(owner, abi)
}
