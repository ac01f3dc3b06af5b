package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ServerConfig holds the query API's own bind address, loaded separately
// from the node's pkg/config so the query API and the peer node, which run
// in the same process, can be configured independently (spec.md §6: the node binds WebSocket on host:port while
// the query API binds HTTP on localhost:8080 by default).
type ServerConfig struct {
	BindAddr string
}

var AppConfig ServerConfig

// Load reads apiserver/.env (if present) and falls back to defaults.
func Load() error {
	if err := godotenv.Load("apiserver/.env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading env: %w", err)
	}
	bind := os.Getenv("API_BIND_ADDR")
	if bind == "" {
		bind = "localhost:8080"
	}
	AppConfig = ServerConfig{BindAddr: bind}
	return nil
}
