package commands

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassphrase returns the --passphrase flag's value if set, otherwise
// prompts for hidden terminal input.
func readPassphrase() ([]byte, error) {
	if passphraseFlag != "" {
		return []byte(passphraseFlag), nil
	}

	fmt.Print("Passphrase: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pw, nil
}

func requireNickname() error {
	if nickname == "" {
		return fmt.Errorf("--nickname is required")
	}
	return nil
}
