package main

// cmd/brainersd/main.go – the node binary, `<program> <host> <port>` per
// spec.md §6. Grounded on the teacher's cmd/synnergy/main.go cobra-based
// entry point shape, reworked from a mock testnet/token CLI down to the
// one bootstrap command this spec actually names.

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"

	"brainersd/apiserver"
	core "brainersd/core"
	"brainersd/pkg/config"
)

func main() {
	root := &cobra.Command{
		Use:   "brainersd <host> <port>",
		Short: "run a brainersd ledger node",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("brainersd exited")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	listenAddr := fmt.Sprintf("%s:%d", host, port)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.WithError(err).Warn("no config file found, using defaults")
		cfg = &config.Config{}
		viper.Reset()
	}

	wallet, err := core.NewWallet()
	if err != nil {
		return fmt.Errorf("generate validator identity: %w", err)
	}
	log.WithField("address", wallet.Address).Info("local validator identity")

	storePath := cfg.Storage.DBPath
	if storePath == "" {
		storePath = "brainersd.db"
	}
	bootstrap := cfg.Network.BootstrapPeers
	discovery := cfg.Network.DiscoveryPeriod

	node, err := core.NewValidatorNode(core.ValidatorNodeConfig{
		Network: core.Config{
			ListenAddr:      listenAddr,
			BootstrapPeers:  bootstrap,
			DiscoveryPeriod: discovery,
		},
		Ledger: core.LedgerConfig{
			StorePath:  storePath,
			RunGenesis: true,
		},
		Self: wallet.Address,
	})
	if err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	defer node.Stop()

	node.Start()

	log.WithField("listen", listenAddr).Info("brainersd node started")
	return apiserver.Serve(node)
}
