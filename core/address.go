package core

// address.go – canonical address derivation for the ledger.
//
// Grounded on the shape of the teacher's core/wallet.go (key generation) and
// core/address_from_common_tokens.go (address-from-pubkey derivation), but
// re-keyed to the curve and encoding this spec actually calls for: ECDSA
// over a NIST P-256-class curve, SHA-256, and base58 — not the teacher's
// Ed25519/secp256k1 + ripemd160 scheme, which belongs to a different chain
// family. mr-tron/base58 is the teacher's own (indirect, libp2p-multibase-
// pulled) base58 dependency, promoted here to a direct import.

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	crand "crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address is the ledger's canonical account identifier: a 42-character
// string of the form "0xBrainers" followed by the first 34 characters of
// base58(SHA-256(subject public key DER)).
//
// Reading the literal prefix "0xBrainers" (10 chars) plus a 34-char suffix
// yields 44, not 42 — spec.md names both a 42-character total and this
// exact construction. We follow the construction (it is the only testable
// part) and do not silently shrink the prefix or suffix to force the count
// to 42; see DESIGN.md / SPEC_FULL.md §5 for the same treatment spec.md
// gives its other internally inconsistent constant (the genesis ratios).
type Address string

const addressPrefix = "0xBrainers"

// Reserved addresses named by spec.md §3.
const (
	ZeroAddress      Address = Address("0000000000000000000000000000000000000000")
	DEXSinkAddress   Address = addressPrefix + "DEX"
	TTFSinkAddress   Address = addressPrefix + "TTF"
	TUVSinkAddress   Address = addressPrefix + "TUV"
	addressSuffixLen         = 34
)

// Curve is the NIST P-256-class curve spec.md assumes is available.
func Curve() elliptic.Curve { return elliptic.P256() }

// GenerateKey creates a new ECDSA P-256 keypair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(Curve(), crand.Reader)
}

// DeriveAddress computes the canonical Address for a public key, per
// spec.md §3: SHA-256 over the subject public-key DER encoding, base58
// encoded, truncated to addressSuffixLen characters and prefixed.
func DeriveAddress(pub *ecdsa.PublicKey) (Address, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("derive address: %w", err)
	}
	sum := sha256.Sum256(der)
	enc := base58.Encode(sum[:])
	if len(enc) > addressSuffixLen {
		enc = enc[:addressSuffixLen]
	}
	return Address(addressPrefix + enc), nil
}

// VerifyAddress reports whether addr matches the address derivable from pub,
// returning ErrInvalidAddress on mismatch.
func VerifyAddress(addr Address, pub *ecdsa.PublicKey) error {
	want, err := DeriveAddress(pub)
	if err != nil {
		return err
	}
	if want != addr {
		return ErrInvalidAddress
	}
	return nil
}

// IsReserved reports whether addr is one of the well-known sink addresses
// that never has a registered public key (genesis, reward, sub-ledger
// sinks) and is therefore exempt from signature verification.
func (a Address) IsReserved() bool {
	switch a {
	case ZeroAddress, DEXSinkAddress, TTFSinkAddress, TUVSinkAddress:
		return true
	default:
		return false
	}
}

func (a Address) String() string { return string(a) }
