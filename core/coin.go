package core

// coin.go – genesis distribution of the native BRAINERS asset.
//
// Grounded on the teacher's coin.go (a small manager around the native
// asset's total supply and mint/burn/transfer bookkeeping), but the
// teacher's halving schedule and MaxSupply cap belong to a different
// tokenomics model. spec.md §4.7 instead names a one-time, fixed-ratio
// genesis split across six named treasury wallets, which is all this file
// now builds.

import "fmt"

// Treasury wallet addresses named by spec.md §4.7. These are well-known,
// deterministic destinations — not wallets anyone signs transactions from
// here — so, like the reserved sink addresses in address.go, they never
// need a registered public key.
const (
	TreasuryReserve           Address = "0xBrainersTreasuryReserve"
	TreasuryLiquidity         Address = "0xBrainersTreasuryLiquidity"
	TreasuryStablecoinReserve Address = "0xBrainersTreasuryStablecoinReserve"
	TreasuryInvestor          Address = "0xBrainersTreasuryInvestor"
	TreasuryGuarantee         Address = "0xBrainersTreasuryGuarantee"
	TreasuryFarming           Address = "0xBrainersTreasuryFarming"
)

type genesisShare struct {
	recipient Address
	num, den  int64
}

// genesisShares lists the six treasury allocations in the exact order and
// ratio spec.md §4.7 names. They sum to 9998/10000, not 10000/10000 — a
// discrepancy the spec itself flags as an open question (§9 item 1) rather
// than something to silently round up; see DESIGN.md.
var genesisShares = []genesisShare{
	{TreasuryReserve, 742, 10000},
	{TreasuryLiquidity, 19, 100},
	{TreasuryStablecoinReserve, 19, 100},
	{TreasuryInvestor, 20, 100},
	{TreasuryGuarantee, 19, 100},
	{TreasuryFarming, 558, 10000},
}

// BuildGenesisBlock constructs block 0: one genesis transaction per
// treasury wallet, sender ZeroAddress, crediting its exact fractional share
// of InitialSupply. PreviousHash is the zero Hash (spec.md S1: "0"×64).
func BuildGenesisBlock() *Block {
	txs := make([]*Transaction, 0, len(genesisShares))
	ts := NowMicro()
	for _, share := range genesisShares {
		frac, err := NewRationalFrac(share.num, share.den)
		if err != nil {
			panic(fmt.Sprintf("coin: invalid genesis share %d/%d", share.num, share.den))
		}
		amount := InitialSupply.Mul(frac)
		tx := &Transaction{
			Sender:    ZeroAddress,
			Recipient: share.recipient,
			Amount:    amount,
			Kind:      TxGenesis,
			Fee:       Zero,
			Timestamp: ts,
		}
		h, err := tx.ComputeHash()
		if err != nil {
			panic(fmt.Sprintf("coin: hash genesis tx: %v", err))
		}
		tx.Hash = h
		txs = append(txs, tx)
	}

	block := &Block{
		Index:        0,
		Transactions: txs,
		Timestamp:    ts,
		PreviousHash: Hash{},
		Validator:    ZeroAddress,
	}
	finalized, err := FinalizeBlock(block)
	if err != nil {
		panic(fmt.Sprintf("coin: finalize genesis block: %v", err))
	}
	return finalized
}
