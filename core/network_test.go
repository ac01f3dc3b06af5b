package core

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestNode spins up an httptest.Server fronting node's WebSocket
// handler and returns an already-connected client WriteJSON/ReadJSON
// conn, the way a real peer would after Dial.
func dialTestNode(t *testing.T, node *Node) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(node.Handler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial test node: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestNodeHandlesHello(t *testing.T) {
	l := newTestLedger(t, false)
	m := NewMempool(l)
	node := NewNode(Config{}, l, m)

	conn, cleanup := dialTestNode(t, node)
	defer cleanup()

	hello, err := encodeMessage(msgHello, HelloPayload{})
	if err != nil {
		t.Fatalf("encode hello: %v", err)
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	// Hello gets no reply; confirm the connection stays open by following
	// up with a request that does.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	req, _ := encodeMessage(msgGetBlockchainState, GetBlockchainStatePayload{})
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write get_blockchain_state: %v", err)
	}
	var resp WireMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read state response: %v", err)
	}
	if resp.Type != msgGetBlockchainState {
		t.Fatalf("response type = %q, want %q", resp.Type, msgGetBlockchainState)
	}
}

func TestNodeRespondsToGetBlockchainState(t *testing.T) {
	l := newTestLedger(t, true)
	m := NewMempool(l)
	node := NewNode(Config{}, l, m)

	conn, cleanup := dialTestNode(t, node)
	defer cleanup()

	req, err := encodeMessage(msgGetBlockchainState, GetBlockchainStatePayload{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WireMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap StateSnapshot
	if err := decodePayload(resp.Payload, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Height != l.Height() {
		t.Errorf("snapshot height = %d, want %d", snap.Height, l.Height())
	}
	if snap.HeadHash != l.HeadHash().String() {
		t.Errorf("snapshot head hash = %s, want %s", snap.HeadHash, l.HeadHash().String())
	}
}

func TestNodeAdmitsGossipedTransaction(t *testing.T) {
	l := newTestLedger(t, false)
	m := NewMempool(l)
	node := NewNode(Config{}, l, m)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(1_000))

	conn, cleanup := dialTestNode(t, node)
	defer cleanup()

	tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(10), MinFee, nil)
	req, err := encodeMessage(msgNewTransaction, NewTransactionPayload{Transaction: tx})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WireMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var ack NewTransactionAck
	if err := decodePayload(resp.Payload, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Success {
		t.Fatalf("transaction admission failed: %s", ack.Error)
	}
	if m.Len() != 1 {
		t.Errorf("mempool depth after gossiped transaction = %d, want 1", m.Len())
	}
}

func TestHandleIncomingBlockRejectsDiscontinuity(t *testing.T) {
	l := newTestLedger(t, true)
	m := NewMempool(l)
	node := NewNode(Config{}, l, m)

	bogus := &Block{
		Index:        l.Height(),
		Transactions: nil,
		Timestamp:    NowMicro(),
		PreviousHash: Hash{}, // wrong: should equal l.HeadHash()
		Validator:    ZeroAddress,
	}
	finalized, err := FinalizeBlock(bogus)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := node.handleIncomingBlock(nil, finalized); err == nil {
		t.Fatalf("expected handleIncomingBlock to reject a block with the wrong previous hash")
	}
	if l.Height() != 1 {
		t.Fatalf("height changed despite rejected block: %d", l.Height())
	}
}

func TestHandleIncomingBlockCommitsNextBlock(t *testing.T) {
	l := newTestLedger(t, true)
	m := NewMempool(l)
	node := NewNode(Config{}, l, m)

	next := &Block{
		Index:        l.Height(),
		Transactions: nil,
		Timestamp:    NowMicro(),
		PreviousHash: l.HeadHash(),
		Validator:    ZeroAddress,
	}
	finalized, err := FinalizeBlock(next)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	wantHeight := l.Height() + 1
	if err := node.handleIncomingBlock(nil, finalized); err != nil {
		t.Fatalf("handleIncomingBlock rejected a genuinely-next block: %v", err)
	}
	if l.Height() != wantHeight {
		t.Fatalf("height after accepting gossiped block = %d, want %d", l.Height(), wantHeight)
	}
}

func TestValidateIncomingBlockRejectsTamperedTransaction(t *testing.T) {
	l := newTestLedger(t, true)
	w := newTestWallet(t)
	fundReward(t, l, w.Address, NewRationalInt(1_000))

	tx := newSignedTx(t, w, TxTransfer, "0xBrainersSomeoneElse000000000000", NewRationalInt(10), MinFee, nil)
	tx.Amount = NewRationalInt(999) // tamper after signing

	block := &Block{
		Index:        l.Height(),
		Transactions: []*Transaction{tx},
		Timestamp:    NowMicro(),
		PreviousHash: l.HeadHash(),
		Validator:    ZeroAddress,
	}
	finalized, err := FinalizeBlock(block)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := ValidateIncomingBlock(l, finalized); err == nil {
		t.Fatalf("expected ValidateIncomingBlock to reject a block with a tampered transaction")
	}
}

func TestHandleSyncRequestRespondsWithMissingBlocks(t *testing.T) {
	l := newTestLedger(t, true) // genesis only, height 1
	m := NewMempool(l)
	node := NewNode(Config{}, l, m)

	conn, cleanup := dialTestNode(t, node)
	defer cleanup()

	req, err := encodeMessage(msgSyncRequest, SyncRequestPayload{LastBlock: -1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WireMessage
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != msgSyncResponse {
		t.Fatalf("response type = %q, want %q", resp.Type, msgSyncResponse)
	}
	var sr SyncResponsePayload
	if err := decodePayload(resp.Payload, &sr); err != nil {
		t.Fatalf("decode sync response: %v", err)
	}
	if len(sr.Blocks) != int(l.Height()) {
		t.Fatalf("sync response blocks = %d, want %d (from genesis)", len(sr.Blocks), l.Height())
	}
	if sr.Blocks[0].Index != 0 {
		t.Errorf("first synced block index = %d, want 0", sr.Blocks[0].Index)
	}
}

func TestHandleSyncResponseAppliesBlocksInOrder(t *testing.T) {
	source := newTestLedger(t, true)
	w := newTestWallet(t)
	fundReward(t, source, w.Address, NewRationalInt(1_000)) // height now 2

	dest := newTestLedger(t, false) // empty, height 0
	m := NewMempool(dest)
	node := NewNode(Config{}, dest, m)

	var blocks []*Block
	for i := uint64(0); i < source.Height(); i++ {
		b, ok := source.BlockByHeight(i)
		if !ok {
			t.Fatalf("missing source block %d", i)
		}
		blocks = append(blocks, b)
	}

	if err := node.handleSyncResponse(blocks); err != nil {
		t.Fatalf("handleSyncResponse: %v", err)
	}
	if dest.Height() != source.Height() {
		t.Fatalf("dest height after sync = %d, want %d", dest.Height(), source.Height())
	}
	if dest.HeadHash() != source.HeadHash() {
		t.Fatalf("dest head hash after sync = %s, want %s", dest.HeadHash(), source.HeadHash())
	}
}

func decodePayload(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}
