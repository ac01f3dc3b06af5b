package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gorilla/mux"

	core "brainersd/core"

	"brainersd/apiserver/routes"
	"brainersd/apiserver/services"
)

// TestMain builds the single ValidatorNode this file's tests share.
// NewValidatorNode goes through core.InitLedger's process-wide sync.Once
// (see core/helpers.go), so every test in this package reuses the one
// ledger constructed here instead of opening its own.
var (
	testNode   *core.ValidatorNode
	testRouter *mux.Router
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "brainersd-apiserver-test-*")
	if err != nil {
		panic(err)
	}

	vn, err := core.NewValidatorNode(core.ValidatorNodeConfig{
		Network: core.Config{ListenAddr: "127.0.0.1:0"},
		Ledger:  core.LedgerConfig{StorePath: dir + "/ledger.db", RunGenesis: true},
		Self:    core.ZeroAddress,
	})
	if err != nil {
		panic(err)
	}
	testNode = vn

	svc := services.NewLedgerService(vn)
	ctrl := NewLedgerController(svc)
	r := mux.NewRouter()
	routes.Register(r, ctrl)
	testRouter = r

	os.Exit(m.Run())
}

func doRequest(method, target string, body any) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		buf, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(buf))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	testRouter.ServeHTTP(rr, r)
	return rr
}

func fundAccount(t *testing.T, addr core.Address, amount *core.Rational) {
	t.Helper()
	tx := &core.Transaction{Sender: core.ZeroAddress, Recipient: addr, Amount: amount, Kind: core.TxReward, Fee: core.Zero, Timestamp: core.NowMicro()}
	h, err := tx.ComputeHash()
	if err != nil {
		t.Fatalf("hash reward tx: %v", err)
	}
	tx.Hash = h
	block := &core.Block{
		Index:        testNode.Ledger.Height(),
		Transactions: []*core.Transaction{tx},
		Timestamp:    core.NowMicro(),
		PreviousHash: testNode.Ledger.HeadHash(),
		Validator:    core.ZeroAddress,
	}
	finalized, err := core.FinalizeBlock(block)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := testNode.Ledger.CommitBlock(finalized); err != nil {
		t.Fatalf("commit reward: %v", err)
	}
}

func TestGetBalanceUnknownAccountIsZero(t *testing.T) {
	rr := doRequest(http.MethodGet, "/balance/0xBrainersNeverFunded0000000000000", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["balance"] != "0" {
		t.Errorf("balance = %q, want %q", body["balance"], "0")
	}
}

func TestGetBalanceAfterFunding(t *testing.T) {
	addr := core.Address("0xBrainersControllerBalanceTest000")
	fundAccount(t, addr, core.NewRationalInt(250))

	rr := doRequest(http.MethodGet, "/balance/"+string(addr), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["balance"] != "250" {
		t.Errorf("balance = %q, want %q", body["balance"], "250")
	}
}

func TestGetTransactionMalformedHashIs500(t *testing.T) {
	// parseHash's "malformed hash" error isn't one of the sentinel errors
	// writeError special-cases, so it falls through to the 500 default.
	rr := doRequest(http.MethodGet, "/transaction/not-a-valid-hex-hash", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for a malformed hash", rr.Code)
	}
}

func TestGetTransactionWellFormedButUnknownHashIs404(t *testing.T) {
	rr := doRequest(http.MethodGet, "/transaction/"+core.Hash{}.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for an unknown (but well-formed) hash", rr.Code)
	}
}

func TestGetTransactionRoundTrip(t *testing.T) {
	w, err := core.NewWallet()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	fundAccount(t, w.Address, core.NewRationalInt(1_000))

	tx := &core.Transaction{Recipient: "0xBrainersSomeoneElseAgain00000000", Amount: core.NewRationalInt(5), Kind: core.TxTransfer, Fee: core.MinFee, Timestamp: core.NowMicro()}
	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("sign: %v", err)
	}
	block := &core.Block{
		Index:        testNode.Ledger.Height(),
		Transactions: []*core.Transaction{tx},
		Timestamp:    core.NowMicro(),
		PreviousHash: testNode.Ledger.HeadHash(),
		Validator:    core.ZeroAddress,
	}
	finalized, err := core.FinalizeBlock(block)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := testNode.Ledger.CommitBlock(finalized); err != nil {
		t.Fatalf("commit: %v", err)
	}

	rr := doRequest(http.MethodGet, "/transaction/"+tx.Hash.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	var got core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Hash != tx.Hash {
		t.Errorf("returned transaction hash = %s, want %s", got.Hash, tx.Hash)
	}
}

func TestGetStateReflectsLedgerHeight(t *testing.T) {
	rr := doRequest(http.MethodGet, "/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var snap core.StateSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Height != testNode.Ledger.Height() {
		t.Errorf("state height = %d, want %d", snap.Height, testNode.Ledger.Height())
	}
}

func TestGetValidatorUnknownIs404(t *testing.T) {
	rr := doRequest(http.MethodGet, "/validator/0xBrainersNotAValidator00000000000", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestPostTransactionAdmitsSignedTransfer(t *testing.T) {
	w, err := core.NewWallet()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	fundAccount(t, w.Address, core.NewRationalInt(1_000))

	tx := &core.Transaction{Recipient: "0xBrainersPostEndpointRecipient000", Amount: core.NewRationalInt(10), Kind: core.TxTransfer, Fee: core.MinFee, Timestamp: core.NowMicro()}
	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("sign: %v", err)
	}

	rr := doRequest(http.MethodPost, "/transaction", tx)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("response success = %v, want true", resp["success"])
	}
}

func TestPostTransactionRejectsBadSignature(t *testing.T) {
	w, err := core.NewWallet()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	fundAccount(t, w.Address, core.NewRationalInt(1_000))

	tx := &core.Transaction{Recipient: "0xBrainersPostEndpointRecipient000", Amount: core.NewRationalInt(10), Kind: core.TxTransfer, Fee: core.MinFee, Timestamp: core.NowMicro()}
	if err := w.SignTransaction(tx); err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Amount = core.NewRationalInt(999)

	rr := doRequest(http.MethodPost, "/transaction", tx)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a tampered signed transaction", rr.Code)
	}
}

func TestPostCreateSmartContractRegisters(t *testing.T) {
	body := map[string]any{
		"owner": "0xBrainersContractOwner0000000000",
		"abi":   []map[string]any{{"name": "ping", "signature": []string{}}},
	}
	rr := doRequest(http.MethodPost, "/create_smart_contract", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("response success = %v, want true", resp["success"])
	}
	if resp["address"] == "" || resp["address"] == nil {
		t.Errorf("response address is empty")
	}
}
