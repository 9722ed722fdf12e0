package cli

import (
	"context"
	"fmt"

	"e2estore/internal/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// customerFor picks the customer whose conversations a command touches:
// the device's own identity, or --customer for the operator.
func customerFor(ctx context.Context, s *session, flag string) (uuid.UUID, error) {
	role, err := s.role(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if id, ok := role.CustomerID(); ok {
		return id, nil
	}
	if flag == "" {
		return uuid.Nil, fmt.Errorf("--customer is required for the operator")
	}
	return uuid.Parse(flag)
}

func (a *app) conversationCmd() *cobra.Command {
	var (
		kind     string
		customer string
	)
	cmd := &cobra.Command{
		Use:     "conversation",
		Aliases: []string{"conv"},
		Short:   "Open and list conversations",
	}
	cmd.PersistentFlags().StringVar(&customer, "customer", "", "customer id (operator only)")

	open := &cobra.Command{
		Use:   "open",
		Short: "Open a new conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				id, err := customerFor(ctx, s, customer)
				if err != nil {
					return err
				}
				conv, err := s.convs.Open(ctx, id, domain.ConversationKind(kind))
				if err != nil {
					return err
				}
				a.log.Infof("opened %s conversation for customer %s", conv.Kind, conv.CustomerID)
				fmt.Fprintln(cmd.OutOrStdout(), conv.ID)
				return nil
			})
		},
	}
	open.Flags().StringVar(&kind, "kind", string(domain.ConversationSupport), "support or order")

	list := &cobra.Command{
		Use:   "list",
		Short: "List a customer's conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				id, err := customerFor(ctx, s, customer)
				if err != nil {
					return err
				}
				convs, err := s.convs.List(ctx, id)
				if err != nil {
					return err
				}
				for _, c := range convs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s  %s\n", c.ID, c.Kind, c.CreatedAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(open, list)
	return cmd
}
