package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Summarize every complete period that has no summary",
		Long:  "Walk a channel's complete periods in order and summarize those that are missing. Requires an LLM provider.",
		Run:   runBackfill,
	}

	cmd.Flags().StringP("channel", "C", "", "Channel id (required)")

	cmd.MarkFlagRequired("channel")

	RootCmd.AddCommand(cmd)
}

func runBackfill(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")

	svc, _, logger := openService()
	res, err := svc.Backfill(cmd.Context(), channel)
	if err != nil {
		exitErr("backfill", err)
	}
	logger.Info("backfill finished", "channel", channel, "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)

	b, _ := json.Marshal(res)
	fmt.Println(string(b))
}
