package core

// consensus_params.go – tunable constants shared across mempool, state
// transition, consensus and the sub-ledgers. Grounded on the teacher's
// consensus_params.go role (a small build-tag-free constants file other
// packages can depend on without pulling in consensus.go's full machinery)
// but re-valued to spec.md's own figures instead of the teacher's halving
// schedule.

// MinStake is the minimum stake balance required for a validator to be
// considered active (spec.md §3 Validator invariant).
var MinStake = NewRationalInt(10_000)

// BlockReward is paid to the producing validator via a synthetic reward
// transaction on every commit (spec.md §4.4).
var BlockReward = NewRationalInt(1)

// GiftValidatorBurn is the amount burned from the sender to mint a gift
// validator for the recipient (spec.md Glossary).
var GiftValidatorBurn = NewRationalInt(6000)

// MinFee and MaxFee bound the mempool's depth-based fee formula
// (spec.md §4.2).
var (
	minFeeNum, minFeeDen = int64(1), int64(1000)
	maxFeeNum, maxFeeDen = int64(1), int64(100)
)

func mustFrac(num, den int64) *Rational {
	r, err := NewRationalFrac(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

var (
	MinFee = mustFrac(minFeeNum, minFeeDen)
	MaxFee = mustFrac(maxFeeNum, maxFeeDen)
)

// MaxTransactionsPerBlock bounds how many mempool entries a single
// Assembling phase may drain (spec.md §4.4).
const MaxTransactionsPerBlock = 10_000

// MinLiquidityDEX is the minimum post-add pool size for add_liquidity
// (spec.md §4.3).
var MinLiquidityDEX = NewRationalInt(1_000_000)

// TradingDelaySeconds is how long after a pool's first liquidity add trading
// opens (spec.md §4.3 "trading-start = now + 86400s").
const TradingDelaySeconds int64 = 86400

// MinLiquidityTTF is the minimum pool BRAINERS balance required to open a
// futures market on a token (spec.md §4.3).
var MinLiquidityTTF = NewRationalInt(500_000)

// LiquidationThreshold: a position is liquidated once pnl <= -collateral *
// LiquidationThreshold (spec.md §4.3, "80/100").
var LiquidationThreshold = mustFrac(80, 100)

// OrderFeeRate is charged on matched DEX trades, split equally between the
// two sides (spec.md §4.3 "brainers_amount × 3/1000").
var OrderFeeRate = mustFrac(3, 1000)

// ReputationDecay and ReputationWeight are the factors of the EMA update
// new = old*9/10 + performance*1/10 (spec.md §4.4).
var (
	ReputationDecay  = mustFrac(9, 10)
	ReputationWeight = mustFrac(1, 10)
)

// PerformanceHistoryCap bounds Validator.PerformanceHistory (spec.md §3).
const PerformanceHistoryCap = 1000

// ChatLogCap bounds the per-token chat message log (spec.md §4.5).
const ChatLogCap = 10_000

// InitialSupply is the total BRAINERS minted at genesis (spec.md §4.7).
var InitialSupply = NewRationalInt(5_000_000_000)
