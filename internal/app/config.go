package app

// Config holds runtime wiring options for building the CLI's
// dependency graph.
type Config struct {
	HomeDir  string // config directory, e.g. $HOME/.ciphermesh
	RelayURL string // relay address, e.g. relay.example.com:3600
	TLS      bool
}
