package main

import (
	"ChatSync/internal/service"
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/spf13/cobra"
)

var (
	sendTo   int64
	sendText string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one message to a user, creating the conversation if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendTo <= 0 || sendText == "" {
			return errors.New("--to and --text are required")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		app, err := buildEngine()
		if err != nil {
			return err
		}
		engine := app.Engine
		defer engine.Cleanup()

		if err := engine.Init(ctx); err != nil {
			log.Warn("engine initialized with errors", "err", err)
		}
		conv, err := engine.GetOrCreateConversation(ctx, sendTo)
		if err != nil {
			return err
		}
		msg, err := engine.SendMessage(ctx, service.SendRequest{Content: sendText})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent message %d to conversation %d\n", msg.ID, conv.ID)
		return nil
	},
}

func init() {
	sendCmd.Flags().Int64Var(&sendTo, "to", 0, "recipient user id")
	sendCmd.Flags().StringVar(&sendText, "text", "", "message text")
	rootCmd.AddCommand(sendCmd)
}
