package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/MrEthical07/goSession/token"
	"github.com/spf13/cobra"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random token secret",
		Long: `Print a random hex-encoded token secret suitable for --secret or
$GOSESSION_SECRET. Rotating the secret invalidates every issued token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < token.MinSecretLength {
				return fmt.Errorf("bytes must be at least %d", token.MinSecretLength)
			}
			secret := make([]byte, size)
			if _, err := rand.Read(secret); err != nil {
				return err
			}
			cmd.Println(hex.EncodeToString(secret))
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", token.MinSecretLength, "secret length in bytes")
	return cmd
}
