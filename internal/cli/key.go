package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"e2estore/internal/cryptocore"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Inspect, rotate, export or import this device's private key",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the local and published public keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "role:      %s\n", role)

				local := "(none)"
				if priv, ok, err := s.ids.LocalPrivateKey(ctx, role); err != nil {
					return err
				} else if ok {
					if local, err = cryptocore.PublicKeyOf(priv); err != nil {
						return err
					}
				}
				published, ok, err := s.ids.PublicKey(ctx, role)
				if err != nil {
					return err
				}
				if !ok {
					published = "(none)"
				}
				fmt.Fprintf(out, "local:     %s\n", local)
				fmt.Fprintf(out, "published: %s\n", published)
				if local != published {
					a.log.Warnf("local and published keys differ; run e2ectl init or e2ectl key import")
				}
				return nil
			})
		},
	}

	var yes bool
	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Replace the key pair and publish the new public key",
		Long: `Generates a new key pair, publishes the public half and replaces the local
private key.

Records the counterpart sent to you stay readable through their sender key
snapshots. Records you sent under the old key that the counterpart reads
without a snapshot, and your own records once the counterpart rotates, cannot
be decrypted again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("rotation is irreversible; pass --yes to continue")
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				kp, err := s.ids.Rotate(ctx, role)
				if err != nil {
					return err
				}
				a.log.Successf("key rotated for %s", role)
				fmt.Fprintln(cmd.OutOrStdout(), kp.PublicKey)
				return nil
			})
		},
	}
	rotate.Flags().BoolVar(&yes, "yes", false, "confirm the rotation")

	export := &cobra.Command{
		Use:   "export",
		Short: "Print the private key as JWK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				priv, err := s.ids.ExportPrivateKey(ctx, role)
				if err != nil {
					return err
				}
				a.log.Warnf("anyone holding this key can read %s's records", role)
				fmt.Fprintln(cmd.OutOrStdout(), priv)
				return nil
			})
		},
	}

	var customerID string
	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Install an exported private key and republish its public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				if customerID != "" {
					id, err := uuid.Parse(customerID)
					if err != nil {
						return fmt.Errorf("invalid --customer-id: %w", err)
					}
					if err := s.keyring.SetCustomerID(ctx, id); err != nil {
						return err
					}
				}
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				if err := s.ids.ImportPrivateKey(ctx, role, strings.TrimSpace(raw)); err != nil {
					return err
				}
				a.log.Successf("key imported for %s", role)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&customerID, "customer-id", "", "customer id the key belongs to (new customer devices)")

	cmd.AddCommand(show, rotate, export, importCmd)
	return cmd
}

func readInput(stdin io.Reader, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(arg)
	return string(data), err
}
