// Package api provides an HTTP API server for learning feeds into, and
// searching, the memory store.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// DisableMCP leaves /mcp unregistered.
	DisableMCP bool
}
