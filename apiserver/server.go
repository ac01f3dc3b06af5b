// Package apiserver implements spec.md §6's read-mostly HTTP query API, a
// separate process-local server from the peer-protocol node: it shares the
// ledger/mempool in-process (see core.ValidatorNode) but binds its own HTTP
// address, matching the teacher's walletserver being a distinct server
// alongside the libp2p node.
package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	core "brainersd/core"

	"brainersd/apiserver/config"
	"brainersd/apiserver/controllers"
	"brainersd/apiserver/routes"
	"brainersd/apiserver/services"
)

// Serve loads the query-API's own configuration and blocks serving HTTP
// until it errors.
func Serve(node *core.ValidatorNode) error {
	if err := config.Load(); err != nil {
		return err
	}
	svc := services.NewLedgerService(node)
	ctrl := controllers.NewLedgerController(svc)

	r := mux.NewRouter()
	routes.Register(r, ctrl)

	logrus.Infof("query API listening on %s", config.AppConfig.BindAddr)
	return http.ListenAndServe(config.AppConfig.BindAddr, r)
}
