package core

// wallet.go – ephemeral local key material and the sender public-key
// registry.
//
// spec.md §9 open question 3 notes that an address (a hash) cannot be
// reversed into a public key, so signature verification of a transaction
// needs the signer's public key from somewhere other than its address.
// We resolve it the way the teacher's core/wallet.go centralises wallet
// state behind a package logger and a small set of constructor functions:
// a PublicKeyRegistry keyed by Address, populated the first time a signed
// transaction from that sender is admitted.

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

func SetWalletLogger(l *log.Logger) { walletLogger = l }

var walletLogger = log.StandardLogger()

// Wallet is a local, ephemeral keypair plus its derived address. Per
// spec.md §3 "Lifecycles", wallets themselves are never persisted by the
// engine — only the resulting address and (via PublicKeyRegistry) public
// key survive a signed transaction.
type Wallet struct {
	Priv    *ecdsa.PrivateKey
	Address Address
}

// NewWallet generates a fresh P-256 keypair and derives its address.
func NewWallet() (*Wallet, error) {
	priv, err := GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("new wallet: %w", err)
	}
	addr, err := DeriveAddress(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("new wallet: %w", err)
	}
	walletLogger.Debugf("wallet created address=%s", addr)
	return &Wallet{Priv: priv, Address: addr}, nil
}

// SignTransaction signs tx with the wallet's private key, setting
// tx.Sender, tx.Hash and tx.Signature.
func (w *Wallet) SignTransaction(tx *Transaction) error {
	tx.Sender = w.Address
	return tx.Sign(w.Priv)
}

// PublicKeyRegistry maps an address to the parsed public key that was
// first seen signing a transaction from it. It is concurrency-safe and
// engine-owned, consistent with this ledger's single-critical-section
// concurrency model (spec.md §5).
type PublicKeyRegistry struct {
	mu   sync.RWMutex
	keys map[Address]*ecdsa.PublicKey
}

func NewPublicKeyRegistry() *PublicKeyRegistry {
	return &PublicKeyRegistry{keys: make(map[Address]*ecdsa.PublicKey)}
}

// Observe records pub as the known public key for addr if none is recorded
// yet. Subsequent calls for the same address are no-ops (a key, once
// registered, does not change — spec.md has no key-rotation concept).
func (r *PublicKeyRegistry) Observe(addr Address, pub *ecdsa.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[addr]; !ok {
		r.keys[addr] = pub
	}
}

// Lookup returns the registered public key for addr, if any.
func (r *PublicKeyRegistry) Lookup(addr Address) (*ecdsa.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pub, ok := r.keys[addr]
	return pub, ok
}

// MarshalPublicKeyDER is a small helper used by callers that already hold a
// key and want its canonical DER bytes (Transaction.Sign uses it to fill
// tx.PublicKey).
func MarshalPublicKeyDER(pub *ecdsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParsePublicKeyDER parses bytes produced by MarshalPublicKeyDER.
func ParsePublicKeyDER(der []byte) (*ecdsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("parse public key: not ECDSA")
	}
	return pub, nil
}
