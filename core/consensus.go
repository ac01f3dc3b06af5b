package core

// consensus.go – the single-producer-at-a-time block assembly state machine
// (spec.md §4.4): Idle → Selecting → Assembling → Committing →
// Broadcasting → Idle.
//
// Grounded on the teacher's core/consensus.go shape (a logger-carrying
// struct with a Start(ctx)/ticker loop, a Broadcast collaborator interface,
// a mutex-guarded height counter), collapsed from the teacher's PoW+PoS+PoH
// hybrid — sub-blocks, difficulty retargeting, block reward halving — down
// to spec.md's single weighted-random PoS selector with no fork-choice
// (Non-goal). The "~3e-7s" target block time names a faster-than-any-
// scheduler period; per SPEC_FULL.md §5 open question 2, this is
// implemented as a fast-drain tick that only actually assembles a block
// once the mempool is non-empty, rather than literally ticking at that
// frequency.

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	log "github.com/sirupsen/logrus"
)

// Broadcaster is the network collaborator a Producer gossips newly
// committed blocks through. network.go's Node implements this.
type Broadcaster interface {
	BroadcastBlock(block *Block)
}

// tickPeriod is how often the producer checks the mempool. spec.md's named
// target block time is far below any achievable scheduler resolution; this
// is the fastest period that keeps the loop from pegging a CPU core while
// still draining back-to-back as soon as transactions arrive.
const tickPeriod = time.Millisecond

// Producer runs the block-assembly state machine for one node. Exactly one
// Producer should run per process — spec.md names a single-producer-at-a-
// time model, not a leader election protocol.
type Producer struct {
	ledger  *Ledger
	mempool *Mempool
	self    Address
	bcast   Broadcaster
	log     *log.Entry
}

// NewProducer builds a Producer that assembles blocks from ledger/mempool,
// gossiping through bcast once committed. self is stored on the Producer
// but selection does not consult it: each block is labelled with, and
// rewards, whichever validator selectValidator picks.
func NewProducer(ledger *Ledger, mempool *Mempool, self Address, bcast Broadcaster) *Producer {
	return &Producer{
		ledger:  ledger,
		mempool: mempool,
		self:    self,
		bcast:   bcast,
		log:     log.WithField("component", "producer"),
	}
}

// Start runs the tick loop until ctx is cancelled.
func (p *Producer) Start(ctx context.Context) {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.mempool.Len() == 0 {
				continue
			}
			if err := p.Tick(); err != nil {
				p.log.WithError(err).Debug("tick aborted")
			}
		}
	}
}

// Tick runs one Selecting → Assembling → Committing → Broadcasting pass. It
// returns an error (and aborts back to Idle) if no validator is currently
// eligible or if the commit itself fails; an empty mempool never reaches
// here from Start but is also handled gracefully if called directly.
func (p *Producer) Tick() error {
	validator, err := p.selectValidator()
	if err != nil {
		return err
	}

	txs := p.mempool.Pick(MaxTransactionsPerBlock)
	if len(txs) == 0 {
		return fmt.Errorf("producer: empty mempool")
	}

	rewardTx := &Transaction{
		Sender:    ZeroAddress,
		Recipient: validator.Address,
		Amount:    BlockReward,
		Kind:      TxReward,
		Fee:       Zero,
		Timestamp: NowMicro(),
	}
	if h, err := rewardTx.ComputeHash(); err == nil {
		rewardTx.Hash = h
	}
	txs = append(txs, rewardTx)

	block := &Block{
		Index:        p.ledger.Height(),
		Transactions: txs,
		Timestamp:    NowMicro(),
		PreviousHash: p.ledger.HeadHash(),
		Validator:    validator.Address,
	}
	finalized, err := FinalizeBlock(block)
	if err != nil {
		for _, tx := range txs {
			p.mempool.Remove(tx.Hash) // already drained; nothing to restore into
		}
		return fmt.Errorf("producer: finalize block: %w", err)
	}

	if err := p.ledger.CommitBlock(finalized); err != nil {
		return fmt.Errorf("producer: commit block: %w", err)
	}

	p.ledger.RecordValidatorSuccess(validator.Address, finalized.Index)
	p.log.WithFields(log.Fields{
		"height":    finalized.Index,
		"validator": finalized.Validator,
		"txs":       len(finalized.Transactions),
	}).Info("block committed")

	if p.bcast != nil {
		p.bcast.BroadcastBlock(finalized)
	}
	return nil
}

// selectValidator picks a validator weighted by stake × reputation, per
// spec.md §4.4. The random point is derived deterministically from a
// keyed hash of the chain head, so every node observing the same chain
// state computes the same selection; no local randomness source is used.
func (p *Producer) selectValidator() (*Validator, error) {
	candidates := make([]*Validator, 0)
	weights := make([]*big.Int, 0)
	total := new(big.Int)

	for _, v := range p.ledger.Validators() {
		if !v.IsActive || v.Stake.Cmp(MinStake) < 0 {
			continue
		}
		w := weightOf(v)
		if w.Sign() <= 0 {
			continue
		}
		candidates = append(candidates, v)
		weights = append(weights, w)
		total.Add(total, w)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("producer: no eligible validator")
	}

	head := p.ledger.HeadHash()
	seed := sha256.Sum256(append([]byte("brainersd/producer-select"), head[:]...))
	point := new(big.Int).Mod(new(big.Int).SetBytes(seed[:]), total)

	cum := new(big.Int)
	for i, w := range weights {
		cum.Add(cum, w)
		if point.Cmp(cum) < 0 {
			return candidates[i], nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// weightOf renders stake × reputation as an integer weight: the exact
// rational product scaled by 1,000,000 and rounded down, so fractional
// stakes and reputations keep six decimal places of resolution. Reputation
// lives in [0,1], so the weight never exceeds 1,000,000 × stake.
func weightOf(v *Validator) *big.Int {
	product := new(big.Rat).Mul(v.Stake.r, v.Reputation.r)
	scaled := new(big.Rat).Mul(product, new(big.Rat).SetInt64(1_000_000))
	out := new(big.Int)
	out.Quo(scaled.Num(), scaled.Denom())
	return out
}
