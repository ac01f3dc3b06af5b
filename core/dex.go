package core

// dex.go – the BRAINERS/token automated-market-maker pool, its order book,
// and the per-token chat log (spec.md §4.3, §4.5).
//
// Grounded on the teacher's core/token_management.go pattern of a map-keyed
// sub-state guarded by the ledger's own lock (no separate mutex), generalised
// here from single-token bookkeeping into the pool/order-book pair spec.md
// §4.3 names. Order ids use github.com/google/uuid, the pack's own id
// generator (seen wired through several of the other example repos), rather
// than hand-rolled counters.

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// LiquidityPosition is one provider's share of a pool, denominated in LP
// units rather than raw token amounts so later adds/removes stay proportional.
type LiquidityPosition struct {
	Provider Address   `json:"provider"`
	Units    *Rational `json:"units"`
}

// Pool is the BRAINERS/token AMM reserve pair for one listed token.
type Pool struct {
	TokenID      string                `json:"token_id"`
	BrainersRes  *Rational             `json:"brainers_reserve"`
	TokenRes     *Rational             `json:"token_reserve"`
	TotalUnits   *Rational             `json:"total_units"`
	Providers    map[Address]*Rational `json:"providers"` // provider -> LP units
	TradingStart int64                 `json:"trading_start"`
}

// Order is one resting limit order in a token's order book.
type Order struct {
	ID        string    `json:"id"`
	Owner     Address   `json:"owner"`
	Side      string    `json:"side"` // "buy" or "sell"
	Price     *Rational `json:"price"`
	Amount    *Rational `json:"amount"` // remaining unit amount of the token
	Timestamp int64     `json:"timestamp"`
}

// OrderBook holds the resting buy and sell orders for one token.
type OrderBook struct {
	Buys  []*Order `json:"buys"`
	Sells []*Order `json:"sells"`
}

// ChatMessage is one entry of a token's public chat log (spec.md §4.5).
type ChatMessage struct {
	Sender    Address `json:"sender"`
	Message   string  `json:"message"`
	Timestamp int64   `json:"timestamp"`
}

// DEXState is the ledger's token-keyed AMM, order-book and chat sub-ledger.
type DEXState struct {
	Pools      map[string]*Pool         `json:"pools"`
	OrderBooks map[string]*OrderBook    `json:"order_books"`
	ChatLogs   map[string][]ChatMessage `json:"chat_logs"`
}

func newDEXState() *DEXState {
	return &DEXState{
		Pools:      make(map[string]*Pool),
		OrderBooks: make(map[string]*OrderBook),
		ChatLogs:   make(map[string][]ChatMessage),
	}
}

// appendChat bounds the per-token log to ChatLogCap, dropping the oldest
// entry once full (spec.md §4.5).
func (d *DEXState) appendChat(tokenID string, msg ChatMessage) {
	log := append(d.ChatLogs[tokenID], msg)
	if len(log) > ChatLogCap {
		log = log[len(log)-ChatLogCap:]
	}
	d.ChatLogs[tokenID] = log
}

func (d *DEXState) poolOrNew(tokenID string) *Pool {
	p, ok := d.Pools[tokenID]
	if !ok {
		p = &Pool{
			TokenID:     tokenID,
			BrainersRes: Zero,
			TokenRes:    Zero,
			TotalUnits:  Zero,
			Providers:   make(map[Address]*Rational),
		}
		d.Pools[tokenID] = p
	}
	return p
}

func (d *DEXState) bookOrNew(tokenID string) *OrderBook {
	b, ok := d.OrderBooks[tokenID]
	if !ok {
		b = &OrderBook{}
		d.OrderBooks[tokenID] = b
	}
	return b
}

// --- add_liquidity / remove_liquidity ---------------------------------------

// applyAddLiquidity credits a provider's pool share in exchange for a
// matched deposit of BRAINERS (tx.Amount) and token (Data["token_amount"]),
// per spec.md §4.3. The first deposit into a pool sets its trading_start to
// now + TradingDelaySeconds.
func applyAddLiquidity(l *Ledger, tx *Transaction) error {
	tokenID, err := dataString(tx, "token")
	if err != nil {
		return err
	}
	if _, ok := l.tokens[tokenID]; !ok {
		return ErrUnknownToken
	}
	tokenAmount, err := dataRational(tx, "token_amount")
	if err != nil {
		return err
	}

	total := tx.Amount.Add(tx.Fee)
	if err := debit(l, tx.Sender, BrainersTokenID, total); err != nil {
		return err
	}
	if err := debit(l, tx.Sender, tokenID, tokenAmount); err != nil {
		credit(l, tx.Sender, BrainersTokenID, total) // undo the BRAINERS leg
		return err
	}
	burnFee(l, BrainersTokenID, tx.Fee)

	pool := l.dex.poolOrNew(tokenID)
	isFirst := pool.TotalUnits.IsZero()

	var units *Rational
	if isFirst {
		units = tx.Amount.Add(tokenAmount)
	} else {
		units = pool.TotalUnits.Mul(tx.Amount).Quo(pool.BrainersRes)
	}

	pool.BrainersRes = pool.BrainersRes.Add(tx.Amount)
	pool.TokenRes = pool.TokenRes.Add(tokenAmount)
	pool.TotalUnits = pool.TotalUnits.Add(units)
	if existing, ok := pool.Providers[tx.Sender]; ok && existing != nil {
		pool.Providers[tx.Sender] = existing.Add(units)
	} else {
		pool.Providers[tx.Sender] = units
	}

	if pool.BrainersRes.Add(pool.TokenRes).Cmp(MinLiquidityDEX) < 0 {
		return ErrBelowMinimumLiquidity
	}
	if isFirst {
		pool.TradingStart = tx.Timestamp/1_000_000 + TradingDelaySeconds
	}
	return nil
}

// applyRemoveLiquidity burns a provider's LP units and returns their
// proportional share of both reserves.
func applyRemoveLiquidity(l *Ledger, tx *Transaction) error {
	tokenID, err := dataString(tx, "token")
	if err != nil {
		return err
	}
	units, err := dataRational(tx, "units")
	if err != nil {
		return err
	}
	pool, ok := l.dex.Pools[tokenID]
	if !ok {
		return ErrUnknownToken
	}
	have, ok := pool.Providers[tx.Sender]
	if !ok || have.Cmp(units) < 0 {
		return ErrInsufficientBalance
	}
	if err := debit(l, tx.Sender, BrainersTokenID, tx.Fee); err != nil {
		return err
	}
	burnFee(l, BrainersTokenID, tx.Fee)

	brainersOut := pool.BrainersRes.Mul(units).Quo(pool.TotalUnits)
	tokenOut := pool.TokenRes.Mul(units).Quo(pool.TotalUnits)

	pool.Providers[tx.Sender] = have.Sub(units)
	pool.TotalUnits = pool.TotalUnits.Sub(units)
	pool.BrainersRes = pool.BrainersRes.Sub(brainersOut)
	pool.TokenRes = pool.TokenRes.Sub(tokenOut)

	credit(l, tx.Sender, BrainersTokenID, brainersOut)
	credit(l, tx.Sender, tokenID, tokenOut)
	return nil
}

// --- place_order -------------------------------------------------------------

// applyPlaceOrder appends a limit order to the token's book and runs
// price-time-priority matching at each cross's midpoint price, charging
// OrderFeeRate split equally between the two sides (spec.md §4.3).
func applyPlaceOrder(l *Ledger, tx *Transaction) error {
	tokenID, err := dataString(tx, "token")
	if err != nil {
		return err
	}
	side, err := dataString(tx, "side")
	if err != nil {
		return err
	}
	if side != "buy" && side != "sell" {
		return fmt.Errorf("state transition: place_order side must be \"buy\" or \"sell\"")
	}
	price, err := dataRational(tx, "price")
	if err != nil {
		return err
	}
	amount, err := dataRational(tx, "amount")
	if err != nil {
		return err
	}
	pool, ok := l.dex.Pools[tokenID]
	if !ok {
		return ErrUnknownToken
	}
	if tx.Timestamp/1_000_000 < pool.TradingStart {
		return ErrTradingNotStarted
	}

	if err := debit(l, tx.Sender, BrainersTokenID, tx.Fee); err != nil {
		return err
	}
	burnFee(l, BrainersTokenID, tx.Fee)

	// Lock the side the order will spend if it rests: buyers lock BRAINERS
	// notional, sellers lock the token itself.
	if side == "buy" {
		notional := price.Mul(amount)
		if err := debit(l, tx.Sender, BrainersTokenID, notional); err != nil {
			return err
		}
	} else {
		if err := debit(l, tx.Sender, tokenID, amount); err != nil {
			return err
		}
	}

	order := &Order{
		ID:        uuid.NewString(),
		Owner:     tx.Sender,
		Side:      side,
		Price:     price,
		Amount:    amount,
		Timestamp: tx.Timestamp,
	}
	book := l.dex.bookOrNew(tokenID)
	if side == "buy" {
		book.Buys = append(book.Buys, order)
	} else {
		book.Sells = append(book.Sells, order)
	}
	matchOrders(l, tokenID, book)
	return nil
}

// matchOrders repeatedly crosses the best resting buy against the best
// resting sell while the buy price is at least the sell price, at their
// midpoint, splitting OrderFeeRate equally between the two owners. Ties
// within a side are broken by earliest timestamp (price-time priority).
func matchOrders(l *Ledger, tokenID string, book *OrderBook) {
	for {
		sort.SliceStable(book.Buys, func(i, j int) bool {
			c := book.Buys[i].Price.Cmp(book.Buys[j].Price)
			if c != 0 {
				return c > 0
			}
			return book.Buys[i].Timestamp < book.Buys[j].Timestamp
		})
		sort.SliceStable(book.Sells, func(i, j int) bool {
			c := book.Sells[i].Price.Cmp(book.Sells[j].Price)
			if c != 0 {
				return c < 0
			}
			return book.Sells[i].Timestamp < book.Sells[j].Timestamp
		})
		if len(book.Buys) == 0 || len(book.Sells) == 0 {
			return
		}
		buy, sell := book.Buys[0], book.Sells[0]
		if buy.Price.Cmp(sell.Price) < 0 {
			return
		}

		mid := buy.Price.Add(sell.Price).Quo(NewRationalInt(2))
		qty := buy.Amount
		if sell.Amount.Cmp(qty) < 0 {
			qty = sell.Amount
		}

		notional := mid.Mul(qty)
		fee := notional.Mul(OrderFeeRate)
		halfFee := fee.Quo(NewRationalInt(2))

		// Buyer already locked price*amount in BRAINERS at order placement;
		// refund the difference between that lock and the matched notional
		// (plus their half fee), then deliver the token.
		buyerLocked := buy.Price.Mul(qty)
		buyerRefund := buyerLocked.Sub(notional).Sub(halfFee)
		if buyerRefund.Sign() > 0 {
			credit(l, buy.Owner, BrainersTokenID, buyerRefund)
		}
		credit(l, buy.Owner, tokenID, qty)

		sellerProceeds := notional.Sub(halfFee)
		credit(l, sell.Owner, BrainersTokenID, sellerProceeds)

		burnFee(l, BrainersTokenID, fee)

		buy.Amount = buy.Amount.Sub(qty)
		sell.Amount = sell.Amount.Sub(qty)
		if buy.Amount.IsZero() {
			book.Buys = book.Buys[1:]
		}
		if sell.Amount.IsZero() {
			book.Sells = book.Sells[1:]
		}
	}
}
