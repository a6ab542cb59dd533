package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphermesh/internal/domain"
)

// initCmd creates a new identity, or rotates an existing one, sealing it
// into the State Vault under a passphrase.
func initCmd() *cobra.Command {
	var rotate bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or rotate your local identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireNickname(); err != nil {
				return err
			}
			passphrase, err := readPassphrase()
			if err != nil {
				return err
			}

			if rotate {
				sess, ok, err := appCtx.OpenSession(domain.Nickname(nickname), passphrase)
				if err != nil {
					return fmt.Errorf("unlocking existing identity: %w", err)
				}
				if !ok {
					return fmt.Errorf("no identity to rotate (run init without --rotate first)")
				}
				defer sess.Close()

				newPub, err := sess.RotateIdentity()
				if err != nil {
					return fmt.Errorf("rotating identity: %w", err)
				}
				if err := appCtx.SaveSession(sess, passphrase); err != nil {
					return fmt.Errorf("saving rotated identity: %w", err)
				}
				fmt.Println("Identity rotated.")
				fmt.Printf("New fingerprint: %s\n", sess.Identity().Fingerprint())
				fmt.Printf("New public key:  %s\n", base64PublicKey(newPub))
				fmt.Println("Announce this key to your peers with a key_update frame.")
				return nil
			}

			if appCtx.Vault.Exists() {
				return fmt.Errorf("an identity already exists at %s; use --rotate to replace it", appCtx.Config.HomeDir)
			}

			sess, err := appCtx.NewIdentity(domain.Nickname(nickname))
			if err != nil {
				return fmt.Errorf("creating identity: %w", err)
			}
			defer sess.Close()

			if err := appCtx.SaveSession(sess, passphrase); err != nil {
				return fmt.Errorf("saving identity: %w", err)
			}

			fmt.Println("Identity created.")
			fmt.Printf("Fingerprint: %s\n", sess.Identity().Fingerprint())
			return nil
		},
	}

	cmd.Flags().BoolVar(&rotate, "rotate", false, "rotate the existing identity instead of creating one")
	return cmd
}
