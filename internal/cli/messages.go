package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"e2estore/internal/conversation"
	"e2estore/internal/domain"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <text...>",
		Short: "Encrypt and send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			convID, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				rec, err := s.convs.Send(ctx, role, convID, text)
				if err != nil {
					return err
				}
				a.log.Successf("sent %s", rec.ID)
				return nil
			})
		},
	}
}

func (a *app) orderCmd() *cobra.Command {
	var details conversation.OrderDetails
	cmd := &cobra.Command{
		Use:   "order <conversation-id>",
		Short: "Send encrypted shipping details for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			convID, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(details.Address) == "" {
				return fmt.Errorf("--address is required")
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				rec, err := s.convs.SendOrderDetails(ctx, role, convID, details)
				if err != nil {
					return err
				}
				a.log.Successf("order details sent %s", rec.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&details.Address, "address", "", "shipping address")
	cmd.Flags().StringVar(&details.Notes, "notes", "", "delivery notes")
	return cmd
}

func (a *app) readCmd() *cobra.Command {
	var recordID string
	cmd := &cobra.Command{
		Use:   "read <conversation-id>",
		Short: "Decrypt and print a conversation",
		Long: `Decrypts and prints every record of a conversation.

With --record, only that record is resolved and decrypted again, for example
after the counterpart republished a key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			convID, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			var recID uuid.UUID
			if recordID != "" {
				if recID, err = uuid.Parse(recordID); err != nil {
					return fmt.Errorf("invalid --record %q", recordID)
				}
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				if recID != uuid.Nil {
					msg, err := s.convs.Redecrypt(ctx, role, convID, recID)
					if err != nil {
						return err
					}
					a.log.Debugf("record %s: %s via %s", recID, msg.Outcome, msg.KeySource)
					printMessages(cmd.OutOrStdout(), role, []conversation.Message{msg})
					return nil
				}
				msgs, err := s.convs.Read(ctx, role, convID)
				if err != nil {
					return err
				}
				printMessages(cmd.OutOrStdout(), role, msgs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "decrypt only this record id")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <conversation-id>",
		Short: "Print a conversation and follow new records until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			convID, err := parseConversationID(args[0])
			if err != nil {
				return err
			}
			return a.withSession(cmd, func(ctx context.Context, s *session) error {
				role, err := s.role(ctx)
				if err != nil {
					return err
				}
				printed := 0
				return s.convs.Watch(ctx, role, convID, func(msgs []conversation.Message) {
					if printed > len(msgs) {
						printed = 0
					}
					printMessages(cmd.OutOrStdout(), role, msgs[printed:])
					printed = len(msgs)
				})
			})
		},
	}
}

func printMessages(w io.Writer, viewer domain.Role, msgs []conversation.Message) {
	for _, m := range msgs {
		who := string(m.Record.Sender)
		if m.Record.Sender == viewer.Sender() {
			who = "you"
		}
		ts := m.Record.CreatedAt.Local().Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s  %-8s  %s\n", ts, who, renderText(m))
	}
}

func renderText(m conversation.Message) string {
	switch m.Outcome {
	case conversation.MissingKey:
		return color.YellowString(m.Text)
	case conversation.DecryptFailed:
		return color.RedString(m.Text)
	}
	if m.Record.Kind == domain.RecordOrderDetails {
		d, err := m.OrderDetails()
		if err != nil {
			return color.RedString(conversation.PlaceholderDecryptFailed)
		}
		out := "order: ship to " + d.Address
		if d.Notes != "" {
			out += " (" + d.Notes + ")"
		}
		return out
	}
	return m.Text
}
