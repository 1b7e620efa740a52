package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/channel-memory/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent messages within a token budget",
		Long: "Read a channel back to the Nth most recent user turn and keep the newest " +
			"messages that fit the token budget, never splitting a tool call from its results.",
		Run: runHistory,
	}

	cmd.Flags().StringP("channel", "C", "", "Channel id (required)")
	cmd.Flags().IntP("turns", "t", 10, "User turns to go back (0 for all)")
	cmd.Flags().IntP("budget", "b", 4000, "Max tokens in output (0 for unlimited)")

	cmd.MarkFlagRequired("channel")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")
	turns, _ := cmd.Flags().GetInt("turns")
	budget, _ := cmd.Flags().GetInt("budget")

	svc, _, _ := openService()
	h, err := svc.RecentHistory(cmd.Context(), service.HistoryParams{
		ChannelID:   channel,
		UserTurns:   turns,
		TokenBudget: budget,
	})
	if err != nil {
		exitErr("history", err)
	}

	if formatFlag == "text" {
		for _, m := range h.Messages {
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}
		return
	}

	b, _ := json.MarshalIndent(h, "", "  ")
	fmt.Println(string(b))
}
