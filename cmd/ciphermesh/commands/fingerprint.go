package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphermesh/internal/domain"
)

// fingerprintCmd prints the stored identity's fingerprint.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireNickname(); err != nil {
				return err
			}
			passphrase, err := readPassphrase()
			if err != nil {
				return err
			}

			sess, ok, err := appCtx.OpenSession(domain.Nickname(nickname), passphrase)
			if err != nil {
				return fmt.Errorf("unlocking identity: %w", err)
			}
			if !ok {
				return fmt.Errorf("no identity found; run `ciphermesh init` first")
			}
			defer sess.Close()

			fmt.Printf("Fingerprint: %s\n", sess.Identity().Fingerprint())
			return nil
		},
	}
}
