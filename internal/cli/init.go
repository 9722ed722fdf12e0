package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *app) initCmd() *cobra.Command {
	var (
		authAccount string
		keyringPath string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up this device as a customer or as the operator",
	}
	cmd.PersistentFlags().StringVar(&keyringPath, "keyring", "", "keyring file (default: next to the profile)")

	prepare := func(role string) (Profile, error) {
		p, _, err := a.loadProfile()
		if err != nil {
			return Profile{}, err
		}
		p.Role = role
		if p.Server == "" {
			p.Server = defaultServer
		}
		if keyringPath != "" {
			p.KeyringPath = keyringPath
		}
		if p.KeyringPath == "" {
			p.KeyringPath = filepath.Join(filepath.Dir(a.profilePath), "keyring.db")
		}
		if err := SaveProfile(a.profilePath, p); err != nil {
			return Profile{}, err
		}
		a.log.Infof("profile written to %s", a.profilePath)
		return p, nil
	}

	customer := &cobra.Command{
		Use:   "customer",
		Short: "Create or recover this device's customer identity",
		Long: `Creates a customer identity with a fresh key pair, or recovers the existing one.

A device that already knows its customer id keeps it and regenerates a lost
private key. With --auth-account, a device without a local identity adopts
the customer already linked to that account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := prepare(RoleCustomer)
			if err != nil {
				return err
			}
			if authAccount != "" {
				p.AuthAccountID = authAccount
				if err := SaveProfile(a.profilePath, p); err != nil {
					return err
				}
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.ids.EnsureCustomer(ctx, p.AuthAccountID)
				if err != nil {
					return err
				}
				pub, _, err := s.ids.PublicKey(ctx, role)
				if err != nil {
					return err
				}
				id, _ := role.CustomerID()
				a.log.Successf("customer %s ready", id)
				fmt.Fprintln(cmd.OutOrStdout(), pub)
				return nil
			})
		},
	}
	customer.Flags().StringVar(&authAccount, "auth-account", "", "link the identity to this authenticated account id")

	operator := &cobra.Command{
		Use:   "operator",
		Short: "Create the operator key pair and publish its public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := prepare(RoleOperator); err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.ids.EnsureOperator(ctx); err != nil {
					return err
				}
				pub, _, err := s.ids.OperatorPublicKey(ctx)
				if err != nil {
					return err
				}
				a.log.Successf("operator key published")
				fmt.Fprintln(cmd.OutOrStdout(), pub)
				return nil
			})
		},
	}

	cmd.AddCommand(customer, operator)
	return cmd
}
