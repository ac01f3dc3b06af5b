package controllers

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	core "brainersd/core"
	"brainersd/apiserver/services"
)

// LedgerController implements spec.md §6's HTTP query API: mostly
// read-only GETs over the ledger plus POST endpoints that turn a request
// body into a signed transaction and admit it to the mempool.
type LedgerController struct {
	svc *services.LedgerService
}

func NewLedgerController(svc *services.LedgerService) *LedgerController {
	return &LedgerController{svc: svc}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders {success:false, error:<kind>} with the status code
// spec.md §7 assigns: 400 client errors, 404 unknown resource, 500
// internal. Sentinel errors from core/errors.go are classified by
// identity; anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrUnknownAccount),
		errors.Is(err, core.ErrUnknownToken),
		errors.Is(err, core.ErrUnknownValidator),
		errors.Is(err, core.ErrUnknownContract),
		errors.Is(err, core.ErrPositionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrInsufficientBalance),
		errors.Is(err, core.ErrTradingNotStarted),
		errors.Is(err, core.ErrBelowMinimumLiquidity),
		errors.Is(err, core.ErrVaultLocked),
		errors.Is(err, core.ErrVaultNotOwned):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Success: false, Error: err.Error()})
}

func parseHash(s string) (core.Hash, error) {
	var h core.Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(h) {
		return h, errors.New("malformed hash")
	}
	copy(h[:], b)
	return h, nil
}

// GetBalance handles GET /balance/{address}?token=BRAINERS.
func (lc *LedgerController) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr := core.Address(mux.Vars(r)["address"])
	token := r.URL.Query().Get("token")
	if token == "" {
		token = core.BrainersTokenID
	}
	bal := lc.svc.Balance(addr, token)
	writeJSON(w, http.StatusOK, map[string]string{"balance": bal.String()})
}

// GetTransaction handles GET /transaction/{hash}.
func (lc *LedgerController) GetTransaction(w http.ResponseWriter, r *http.Request) {
	h, err := parseHash(mux.Vars(r)["hash"])
	if err != nil {
		writeError(w, err)
		return
	}
	tx, _, ok := lc.svc.Transaction(h)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// GetBlock handles GET /block/{hash}.
func (lc *LedgerController) GetBlock(w http.ResponseWriter, r *http.Request) {
	h, err := parseHash(mux.Vars(r)["hash"])
	if err != nil {
		writeError(w, err)
		return
	}
	block, ok := lc.svc.Block(h)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// GetToken handles GET /token/{address}.
func (lc *LedgerController) GetToken(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	token, ok := lc.svc.Token(addr)
	if !ok {
		writeError(w, core.ErrUnknownToken)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// GetValidator handles GET /validator/{address}.
func (lc *LedgerController) GetValidator(w http.ResponseWriter, r *http.Request) {
	addr := core.Address(mux.Vars(r)["address"])
	v, ok := lc.svc.Validator(addr)
	if !ok {
		writeError(w, core.ErrUnknownValidator)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetState handles GET /state.
func (lc *LedgerController) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lc.svc.State())
}

func (lc *LedgerController) decodeTransaction(w http.ResponseWriter, r *http.Request) (*core.Transaction, bool) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, err)
		return nil, false
	}
	return &tx, true
}

func (lc *LedgerController) submit(w http.ResponseWriter, r *http.Request, kind core.TxKind) {
	tx, ok := lc.decodeTransaction(w, r)
	if !ok {
		return
	}
	if err := lc.svc.Submit(tx, kind); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "hash": tx.Hash.String()})
}

// PostTransaction handles POST /transaction (a generic transfer).
func (lc *LedgerController) PostTransaction(w http.ResponseWriter, r *http.Request) {
	lc.submit(w, r, core.TxTransfer)
}

// PostStake handles POST /stake.
func (lc *LedgerController) PostStake(w http.ResponseWriter, r *http.Request) {
	lc.submit(w, r, core.TxStake)
}

// PostUnstake handles POST /unstake.
func (lc *LedgerController) PostUnstake(w http.ResponseWriter, r *http.Request) {
	lc.submit(w, r, core.TxUnstake)
}

// PostBurn handles POST /burn.
func (lc *LedgerController) PostBurn(w http.ResponseWriter, r *http.Request) {
	lc.submit(w, r, core.TxBurn)
}

// PostCreateToken handles POST /create_token.
func (lc *LedgerController) PostCreateToken(w http.ResponseWriter, r *http.Request) {
	lc.submit(w, r, core.TxCreateToken)
}

// PostExecuteSmartContract handles POST /execute_smart_contract.
func (lc *LedgerController) PostExecuteSmartContract(w http.ResponseWriter, r *http.Request) {
	lc.submit(w, r, core.TxExecuteContract)
}

// PostCreateSmartContract handles POST /create_smart_contract. Contract
// deployment sits outside the transaction pipeline (spec.md §9: the core
// only reserves the execute_contract hook), so this calls the ledger's
// registration entry point directly instead of admitting a transaction.
func (lc *LedgerController) PostCreateSmartContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner core.Address      `json:"owner"`
		ABI   []core.ABIMethod  `json:"abi"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	contract := lc.svc.RegisterContract(req.Owner, req.ABI)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "address": contract.Address})
}
