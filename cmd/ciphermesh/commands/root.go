package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"ciphermesh/internal/app"
	"ciphermesh/internal/logging"
)

var (
	// These flags are shared across all commands.
	homeDir        string
	passphraseFlag string
	nickname       string
	relayAddr      string
	useTLS         bool
	logLevel       string

	// appCtx holds the wired dependencies after PersistentPreRunE.
	appCtx *app.Wire
)

// Execute initialises the application context and runs the root cobra command.
func Execute() error {
	root := &cobra.Command{
		Use:   "ciphermesh",
		Short: "End-to-end encrypted local-network chat",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logLevel)

			if homeDir == "" {
				if h, err := os.UserHomeDir(); err == nil {
					homeDir = filepath.Join(h, ".ciphermesh")
				}
			}

			cfg := app.Config{HomeDir: homeDir, RelayURL: relayAddr, TLS: useTLS}
			var err error
			appCtx, err = app.NewWire(cfg)
			if err != nil {
				return fmt.Errorf("initialising application: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&homeDir, "home", "", "config directory (default: $HOME/.ciphermesh)")
	root.PersistentFlags().StringVarP(&passphraseFlag, "passphrase", "p", "", "passphrase to unlock your identity (prompted if omitted)")
	root.PersistentFlags().StringVarP(&nickname, "nickname", "n", "", "your nickname")
	root.PersistentFlags().StringVar(&relayAddr, "relay", "", "relay address, e.g. relay.example.com:3600")
	root.PersistentFlags().BoolVar(&useTLS, "tls", true, "require TLS when connecting to a relay")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn, error, silent")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		trustCmd(),
		relayCmd(),
		p2pCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root.SetContext(ctx)

	return root.Execute()
}
