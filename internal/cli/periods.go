package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List a channel's summarized periods",
		Run:   runPeriods,
	}

	cmd.Flags().StringP("channel", "C", "", "Channel id (required)")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")

	cmd.MarkFlagRequired("channel")

	RootCmd.AddCommand(cmd)
}

func runPeriods(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")
	limit, _ := cmd.Flags().GetInt("limit")

	svc, _, _ := openService()
	periods, err := svc.Periods(cmd.Context(), channel, limit)
	if err != nil {
		exitErr("periods", err)
	}

	if formatFlag == "text" {
		for _, p := range periods {
			fmt.Printf("#%d-%d [%s .. %s]\n%s\n\n", p.StartIdx, p.EndIdx,
				p.StartTS.UTC().Format(time.RFC3339), p.EndTS.UTC().Format(time.RFC3339), p.Summary)
		}
		return
	}

	b, _ := json.MarshalIndent(periods, "", "  ")
	fmt.Println(string(b))
}
