package core

// validator_node.go – bundles the ledger, mempool, peer-protocol node, and
// block producer into the single runnable process spec.md describes
// (cmd/brainersd).
//
// Grounded on the teacher's core/validator_node.go shape (one struct
// aggregating networking + ledger + consensus, with Start/Stop lifecycle
// methods), with the PoH/PoS/PoW enable toggles and the ValidatorManager/
// StakePenaltyManager delegate surface dropped: this ledger has exactly one
// consensus mechanism (weighted-stake PoS, see consensus.go), and validator
// lifecycle is driven entirely by signed stake/unstake/gift_validator
// transactions through the normal state-transition pipeline
// (state_transition.go), not a side-channel manager object.

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// ValidatorNodeConfig aggregates the configuration sections a ValidatorNode
// needs to start: its peer-protocol listen address/bootstrap list, ledger
// storage path, and the local validator's own address (handed to the
// Producer, which stores it; produced blocks carry the address of the
// validator selectValidator picks, not Self).
type ValidatorNodeConfig struct {
	Network Config
	Ledger  LedgerConfig
	Self    Address
}

// ValidatorNode is one running brainersd process: a ledger, a mempool, a
// peer-protocol node, and a block producer (built whether or not Self
// names a validator).
type ValidatorNode struct {
	Ledger   *Ledger
	Mempool  *Mempool
	Node     *Node
	Producer *Producer

	cancel context.CancelFunc
}

// NewValidatorNode opens the process-wide ledger singleton (see
// helpers.go's InitLedger/CurrentLedger — the one-node-per-process model
// spec.md's external interfaces describe), builds the mempool, wires the
// WebSocket peer node, and constructs a block producer for cfg.Self.
func NewValidatorNode(cfg ValidatorNodeConfig) (*ValidatorNode, error) {
	if err := InitLedger(cfg.Ledger); err != nil {
		return nil, err
	}
	ledger := CurrentLedger()
	mempool := NewMempool(ledger)
	node := NewNode(cfg.Network, ledger, mempool)
	producer := NewProducer(ledger, mempool, cfg.Self, node)

	return &ValidatorNode{
		Ledger:   ledger,
		Mempool:  mempool,
		Node:     node,
		Producer: producer,
	}, nil
}

// Start launches the peer server, the bootstrap-dial loop, and the block
// producer's tick loop, all running until Stop is called.
func (vn *ValidatorNode) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	vn.cancel = cancel

	go func() {
		if err := vn.Node.Serve(); err != nil {
			log.WithError(err).Error("peer server stopped")
		}
	}()
	go vn.Node.Start(ctx)
	go vn.Producer.Start(ctx)
}

// Stop cancels the producer and dial loops and closes the ledger's backing
// store. It does not close the peer listener, matching net/http's lack of
// a graceful single-listener shutdown primitive without a *http.Server
// reference; a process-level exit reclaims the socket.
func (vn *ValidatorNode) Stop() error {
	if vn.cancel != nil {
		vn.cancel()
	}
	return vn.Ledger.Close()
}

// SubmitTransaction admits a locally originated transaction into the
// mempool and gossips it to every connected peer.
func (vn *ValidatorNode) SubmitTransaction(tx *Transaction) error {
	if err := vn.Mempool.Admit(tx); err != nil {
		return err
	}
	vn.Node.BroadcastTransaction(tx)
	return nil
}

// DecodeTransaction converts JSON-encoded bytes into a Transaction, used by
// the HTTP API layer to accept a caller-submitted transaction.
func DecodeTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
