package core

// stake_penalty.go – validator reputation bookkeeping.
//
// Grounded on the teacher's core/stake_penalty.go (a StateRW-backed
// stake/penalty manager with EMA-free +/- adjustments), narrowed here to
// just the reputation update spec.md §4.4 calls for. Per SPEC_FULL.md §5
// open question 4, this ledger never slashes or penalizes a validator for
// a missed or failed block — reputation only moves on a successful commit
// — so the teacher's Penalize/SlashStake machinery has no caller; stake
// itself is adjusted directly by state_transition.go's applyStake/
// applyUnstake/applyGiftValidator, which is the only "stake accounting"
// this ledger's transaction model allows.

// updateReputation records one performance sample (1.0 for a clean commit)
// into v's bounded history ring and re-smooths its reputation:
// new = old*ReputationDecay + performance*ReputationWeight.
func updateReputation(v *Validator, performance float64) {
	v.PerformanceHistory = append(v.PerformanceHistory, performance)
	if len(v.PerformanceHistory) > PerformanceHistoryCap {
		v.PerformanceHistory = v.PerformanceHistory[len(v.PerformanceHistory)-PerformanceHistoryCap:]
	}

	perf, err := NewRationalFrac(int64(performance*1_000_000), 1_000_000)
	if err != nil {
		return
	}
	v.Reputation = v.Reputation.Mul(ReputationDecay).Add(perf.Mul(ReputationWeight))
	if v.Reputation.Cmp(Zero) < 0 {
		v.Reputation = Zero
	}
	one := NewRationalInt(1)
	if v.Reputation.Cmp(one) > 0 {
		v.Reputation = one
	}
}
