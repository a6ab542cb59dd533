// The entrypoint for the ciphermesh CLI.
package main

import (
	"log"

	"ciphermesh/cmd/ciphermesh/commands"
)

// Initialises and executes the command hierarchy.
func main() {
	if err := commands.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
