package core

// helpers.go – process-wide singleton wiring for the CLI entrypoint.
//
// Grounded on the teacher's core/helpers.go sync.Once-guarded globals
// (InitLedger/CurrentLedger, InitAuthoritySet/CurrentAuthoritySet); the gas
// calculator, firewall and AI-stub-client globals the teacher also declares
// here have no counterpart in this ledger (no gas metering, no contract
// firewall, no AI module) and are dropped rather than carried as dead code.

import "sync"

var (
	ledgerOnce   sync.Once
	globalLedger *Ledger
)

// InitLedger opens (or creates) the ledger backed by the SQL store at path
// and, when cfg.RunGenesis is set, mints a genesis block if the store is
// empty. Safe to call more than
// once; only the first call takes effect.
func InitLedger(cfg LedgerConfig) error {
	var err error
	ledgerOnce.Do(func() {
		globalLedger, err = OpenLedger(cfg)
	})
	return err
}

// CurrentLedger returns the process-wide ledger instance, or nil if
// InitLedger has not yet been called.
func CurrentLedger() *Ledger { return globalLedger }
