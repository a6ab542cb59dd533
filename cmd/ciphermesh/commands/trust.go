package commands

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/trust"
)

// trustCmd groups Trust Store inspection and SAS verification.
func trustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect and manage pinned peer identities",
	}
	cmd.AddCommand(trustListCmd(), trustVerifyConfirmCmd(), trustUpdateCmd())
	return cmd
}

func trustListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pinned peer records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records := appCtx.Trust.List()
			names := make([]string, 0, len(records))
			for nick := range records {
				names = append(names, nick)
			}
			sort.Strings(names)

			for _, nick := range names {
				rec := records[nick]
				verified := "unverified"
				if rec.Verified {
					verified = "verified"
				}
				lastSeen := time.UnixMilli(rec.LastSeen).Format(time.RFC3339)
				fmt.Printf("%-20s %s  %s  last seen %s\n", nick, rec.Fingerprint, verified, lastSeen)
			}
			return nil
		},
	}
}

func trustVerifyConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-confirm <nickname>",
		Short: "Compute and confirm a peer's Short Authentication String",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerNickname := domain.Nickname(args[0])
			rec, found := appCtx.Trust.Get(peerNickname)
			if !found {
				return fmt.Errorf("no pinned record for %q", peerNickname)
			}

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

			code := trust.SAS(sess.Identity().Public(), rec.PublicKey)
			fmt.Printf("Compare this code with %s out of band: %s\n", peerNickname, code)
			fmt.Print("Does it match? [y/N] ")

			reader := bufio.NewReader(os.Stdin)
			line, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(line)) != "y" {
				fmt.Println("Not marked verified.")
				return nil
			}
			if err := appCtx.Trust.MarkVerified(peerNickname); err != nil {
				return fmt.Errorf("marking verified: %w", err)
			}
			fmt.Println("Marked verified.")
			return nil
		},
	}
}

func trustUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <nickname> <base64-public-key>",
		Short: "Explicitly accept a peer's new public key after resolving a mismatch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peerNickname := domain.Nickname(args[0])
			raw, err := base64.StdEncoding.DecodeString(args[1])
			if err != nil || len(raw) != 32 {
				return fmt.Errorf("public key must be base64 of 32 bytes")
			}
			var pub domain.X25519Public
			copy(pub[:], raw)

			if err := appCtx.Trust.Update(peerNickname, pub); err != nil {
				return fmt.Errorf("updating trust record: %w", err)
			}
			fmt.Printf("Updated pinned key for %s. Verification cleared; re-run verify-confirm.\n", peerNickname)
			return nil
		},
	}
}
