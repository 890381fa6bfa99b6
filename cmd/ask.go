package cmd

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Support-Router/agent/agents/coordinator"
)

// newAskCmd runs a single turn through the full pipeline and prints the
// response as JSON.
func newAskCmd() *cobra.Command {
	var (
		message    string
		sessionID  string
		customerID string
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message and print the routed reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" && len(args) == 1 {
				message = args[0]
			}
			if strings.TrimSpace(message) == "" {
				return errors.New("a message is required (--message or argument)")
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.service.Chat(cmd.Context(), coordinator.ChatRequest{
				Message:    message,
				SessionID:  sessionID,
				CustomerID: customerID,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "customer message")
	cmd.Flags().StringVar(&sessionID, "session", "", "existing session id")
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	return cmd
}
