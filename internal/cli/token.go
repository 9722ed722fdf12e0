package cli

import (
	"fmt"
	"os"
	"time"

	"e2estore/internal/opauth"

	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage operator bearer tokens",
	}

	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a token signing key pair",
		Long: `Prints an Ed25519 signing key pair as base64.

Keep the private key with the operator; give the public key to storefrontd as
OPERATOR_TOKEN_PUBLIC_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := opauth.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "private: %s\npublic:  %s\n", priv, pub)
			return nil
		},
	}

	var (
		key     string
		subject string
		issuer  string
		ttl     time.Duration
		save    bool
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign an operator token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("E2ECTL_TOKEN_KEY")
			}
			if key == "" {
				return fmt.Errorf("--key or E2ECTL_TOKEN_KEY is required")
			}
			signer, err := opauth.NewFromBase64(key, "", issuer)
			if err != nil {
				return err
			}
			tok, err := signer.Sign(subject, ttl)
			if err != nil {
				return err
			}
			if !save {
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			}
			p, _, err := a.loadProfile()
			if err != nil {
				return err
			}
			p.OperatorToken = tok
			if err := SaveProfile(a.profilePath, p); err != nil {
				return err
			}
			a.log.Successf("token stored in %s, valid for %s", a.profilePath, ttl)
			return nil
		},
	}
	issue.Flags().StringVar(&key, "key", "", "base64 Ed25519 private key")
	issue.Flags().StringVar(&subject, "subject", "operator", "token subject")
	issue.Flags().StringVar(&issuer, "issuer", opauth.DefaultIssuer, "token issuer")
	issue.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	issue.Flags().BoolVar(&save, "save", false, "store the token in the profile instead of printing it")

	cmd.AddCommand(keygen, issue)
	return cmd
}
