package main

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/MrEthical07/goSession/password"
	"github.com/spf13/cobra"
)

// hashOptions selects the slow hash used for stored credentials.
type hashOptions struct {
	scheme     string
	bcryptCost int
	isMD5      bool
}

func (o *hashOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.scheme, "scheme", "bcrypt", "hash scheme (bcrypt or argon2)")
	cmd.Flags().IntVar(&o.bcryptCost, "cost", 0, "bcrypt cost (default: library default)")
	cmd.Flags().BoolVar(&o.isMD5, "md5", false, "the input is already the client-side MD5 digest")
}

func (o *hashOptions) hasher() (password.Hasher, error) {
	switch o.scheme {
	case "bcrypt":
		if o.bcryptCost == 0 {
			return password.Bcrypt{}, nil
		}
		b, err := password.NewBcrypt(o.bcryptCost)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "argon2":
		a, err := password.NewArgon2(password.DefaultArgon2Config())
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown scheme %q", o.scheme)
	}
}

// fastCredential returns what a client sends for pw: its hex MD5 digest.
func (o *hashOptions) fastCredential(pw string) string {
	if o.isMD5 {
		return pw
	}
	sum := md5.Sum([]byte(pw))
	return hex.EncodeToString(sum[:])
}

func (o *hashOptions) hash(pw string) (string, error) {
	h, err := o.hasher()
	if err != nil {
		return "", err
	}
	return h.Hash(o.fastCredential(pw))
}

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	opts := &hashOptions{}

	cmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Hash a password for storage",
		Long: `Print the stored hash for a password. The password is first reduced to the
MD5 digest clients send, unless --md5 says it already is one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := opts.hash(args[0])
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}

	opts.register(cmd)
	return cmd
}
