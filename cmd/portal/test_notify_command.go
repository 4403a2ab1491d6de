package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	var recipient string

	cmd := &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.Provider == config.ProviderNone {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications disabled; set notifications.provider to send a test")
				return nil
			}
			if strings.TrimSpace(recipient) == "" {
				return errors.New("--to is required")
			}
			receipt, err := ctx.deliver(cmd.Context(), 0, recipient, ctx.newRenderer().RenderTest())
			if err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			switch {
			case receipt.ProviderMessageID != "":
				fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent (message %s)\n", receipt.ProviderMessageID)
			case receipt.Delivered:
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recipient, "to", "", "Recipient address or phone number")
	return cmd
}
