package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/medichat/internal/core/search"
	"github.com/spf13/cobra"
)

var historySince string

var historyCmd = &cobra.Command{
	Use:   "history <session-id> [filters...]",
	Short: "Print a conversation's messages",
	Long: `Print the messages of a conversation.

Filters:
  role:user, role:assistant    only one side of the conversation
  after:<date>, before:<date>  absolute or natural dates (after:yesterday)
  any other words              text that must appear in the message

Examples:
  medichat history 6f1c2a
  medichat history 6f1c2a --since "2 hours ago"
  medichat history 6f1c2a role:assistant ibuprofen`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only messages after this time (e.g. yesterday, \"3 days ago\", 2024-11-01)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	now := time.Now()

	filters := search.ParseQuery(strings.Join(args[1:], " "), now)
	if historySince != "" {
		since, err := search.ParseSince(historySince, now)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filters.AfterDate = since
		filters.HasAfter = true
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	msgs, err := newClient().SessionMessages(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	matched := filters.Apply(msgs)
	out := cmd.OutOrStdout()
	if len(matched) == 0 {
		if len(msgs) == 0 {
			fmt.Fprintln(out, "No messages in this conversation yet.")
		} else {
			fmt.Fprintf(out, "No messages match (%d total).\n", len(msgs))
		}
		return nil
	}

	printMessages(out, matched, now)
	return nil
}
