package core

// common_structs.go – centralised struct definitions referenced across
// modules. This file declares only data structures (no functions, beyond
// tiny constructors) to avoid cyclic imports between ledger, mempool,
// consensus, network and the sub-ledgers — the same role and organisation
// as the teacher's file of the same name.

import (
	"time"
)

//---------------------------------------------------------------------
// Hash
//---------------------------------------------------------------------

// Hash is a 32-byte SHA-256 digest.
type Hash [32]byte

func (h Hash) String() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range h {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}

func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

//---------------------------------------------------------------------
// Transaction
//---------------------------------------------------------------------

// TxKind enumerates the exhaustive transaction types spec.md §3 names.
type TxKind string

const (
	TxGenesis          TxKind = "genesis"
	TxTransfer         TxKind = "transfer"
	TxReward           TxKind = "reward"
	TxCreateToken      TxKind = "create_token"
	TxStake            TxKind = "stake"
	TxUnstake          TxKind = "unstake"
	TxGiftValidator    TxKind = "gift_validator"
	TxBurn             TxKind = "burn"
	TxExecuteContract  TxKind = "execute_contract"
	TxAddLiquidity     TxKind = "add_liquidity"
	TxRemoveLiquidity  TxKind = "remove_liquidity"
	TxPlaceOrder       TxKind = "place_order"
	TxCreateFuture     TxKind = "create_future"
	TxOpenPosition     TxKind = "open_position"
	TxClosePosition    TxKind = "close_position"
	TxCreateVault      TxKind = "create_vault"
	TxTransferVault    TxKind = "transfer_vault"
	TxClaimVault       TxKind = "claim_vault"
	TxChatMessage      TxKind = "chat_message"
)

// BrainersTokenID is the literal token id for the native asset.
const BrainersTokenID = "BRAINERS"

// Transaction is the ledger's unit of state change, per spec.md §3.
type Transaction struct {
	Sender    Address        `json:"sender"`
	Recipient Address        `json:"recipient"`
	Amount    *Rational       `json:"amount"`
	Kind      TxKind         `json:"kind"`
	Fee       *Rational       `json:"fee"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`           // unix micros, canonical across nodes
	Signature string         `json:"signature"`           // base58-encoded ECDSA signature
	PublicKey string         `json:"public_key,omitempty"` // base58 DER, set by Sign on every signed transaction (spec.md §9 open question 3)
	Hash      Hash           `json:"hash"`
}

//---------------------------------------------------------------------
// Block
//---------------------------------------------------------------------

// Block is an ordered, immutable batch of committed transactions.
type Block struct {
	Index         uint64         `json:"index"`
	Transactions  []*Transaction `json:"transactions"`
	Timestamp     int64          `json:"timestamp"`
	PreviousHash  Hash           `json:"previous_hash"`
	Validator     Address        `json:"validator"`
	MerkleRoot    Hash           `json:"merkle_root"`
	Hash          Hash           `json:"hash"`
}

//---------------------------------------------------------------------
// Token
//---------------------------------------------------------------------

// Token is a fungible asset created via a create_token transaction.
type Token struct {
	Name               string             `json:"name"`
	Symbol             string             `json:"symbol"`
	TotalSupply        *Rational           `json:"total_supply"`
	CirculatingSupply  *Rational           `json:"circulating_supply"`
	Creator            Address            `json:"creator"`
	IsMinable          bool               `json:"is_minable"`
	Difficulty         uint64             `json:"difficulty"`
	Address            string             `json:"address"`
	Holders            map[Address]*Rational `json:"holders"`
	CreatedAt          int64              `json:"created_at"`
}

//---------------------------------------------------------------------
// Validator
//---------------------------------------------------------------------

// Validator is a staked (or gifted) block producer candidate.
type Validator struct {
	Address             Address   `json:"address"`
	Stake               *Rational  `json:"stake"`
	IsGift              bool      `json:"is_gift"`
	LastBlockValidated  uint64    `json:"last_block_validated"`
	Reputation          *Rational  `json:"reputation"` // in [0,1]
	IsActive            bool      `json:"is_active"`
	TotalRewards        *Rational  `json:"total_rewards"`
	PerformanceHistory  []float64 `json:"performance_history"` // bounded ring, see consensus_params.go
	histHead            int
}

//---------------------------------------------------------------------
// SmartContract (external hook reservation)
//---------------------------------------------------------------------

// ABIMethod describes one callable entry point of a contract.
type ABIMethod struct {
	Name      string   `json:"name"`
	Signature []string `json:"signature"`
}

// SmartContract records only the ABI and owner of a contract; the core
// never interprets its bytecode — execution is delegated to an external
// ExecutionHook (spec.md §9 "Dynamic contract execution").
type SmartContract struct {
	Address Address     `json:"address"`
	Owner   Address      `json:"owner"`
	ABI     []ABIMethod `json:"abi"`
}

// ExecutionContext is what the core exposes to an external contract
// sandbox: read-only world queries plus a transaction-emit primitive.
// *Ledger implements it and passes itself to the configured ExecutionHook.
type ExecutionContext interface {
	BalanceOf(addr Address, token string) *Rational
	Emit(tx *Transaction) error
}

// ExecutionHook is the contract sandbox collaborator. A node with no
// contract runtime configured treats every execute_contract transaction as
// a no-op beyond fee collection.
type ExecutionHook interface {
	Call(ctx ExecutionContext, contract *SmartContract, method string, args map[string]any) error
}

//---------------------------------------------------------------------
// Config / peer types (see network.go, messages.go for behaviour)
//---------------------------------------------------------------------

// Config aggregates the peer-protocol listen address and bootstrap list.
type Config struct {
	ListenAddr      string
	BootstrapPeers  []string
	DiscoveryPeriod time.Duration
}

// NodeID identifies a peer by its advertised WebSocket address.
type NodeID string

// Peer is a known remote node.
type Peer struct {
	ID   NodeID
	Addr string
}

//---------------------------------------------------------------------
// LedgerConfig / StorageConfig
//---------------------------------------------------------------------

// LedgerConfig configures ledger construction: the backing SQL store path
// and whether a genesis block should be minted on an empty store.
type LedgerConfig struct {
	StorePath  string
	RunGenesis bool
}
