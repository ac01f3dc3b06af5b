package routes

import (
	"github.com/gorilla/mux"

	"brainersd/apiserver/controllers"
	"brainersd/apiserver/middleware"
)

// Register wires spec.md §6's HTTP query API onto r.
func Register(r *mux.Router, lc *controllers.LedgerController) {
	r.Use(middleware.Logger)

	r.HandleFunc("/balance/{address}", lc.GetBalance).Methods("GET")
	r.HandleFunc("/transaction/{hash}", lc.GetTransaction).Methods("GET")
	r.HandleFunc("/block/{hash}", lc.GetBlock).Methods("GET")
	r.HandleFunc("/token/{address}", lc.GetToken).Methods("GET")
	r.HandleFunc("/validator/{address}", lc.GetValidator).Methods("GET")
	r.HandleFunc("/state", lc.GetState).Methods("GET")

	r.HandleFunc("/transaction", lc.PostTransaction).Methods("POST")
	r.HandleFunc("/stake", lc.PostStake).Methods("POST")
	r.HandleFunc("/unstake", lc.PostUnstake).Methods("POST")
	r.HandleFunc("/burn", lc.PostBurn).Methods("POST")
	r.HandleFunc("/create_token", lc.PostCreateToken).Methods("POST")
	r.HandleFunc("/create_smart_contract", lc.PostCreateSmartContract).Methods("POST")
	r.HandleFunc("/execute_smart_contract", lc.PostExecuteSmartContract).Methods("POST")
}
