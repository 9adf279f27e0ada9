package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"handcut/internal/notifications"
	"handcut/internal/services"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "Notification not sent: notifications.ntfy_topic is empty")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return services.Wrap(services.ErrExternalTool, "notify", "ntfy", cfg.Notifications.NtfyTopic, err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
