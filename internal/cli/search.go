package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/channel-memory/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search channel history by keyword clusters",
		Long: "Find the windows of history where the keywords cluster and print them in order, " +
			"with event markers across long gaps. Each argument is one keyword or phrase; " +
			"--groups reads structured groups (base, variants, parts) from a JSON file.",
		Run: runSearch,
	}

	cmd.Flags().StringP("channel", "C", "", "Channel id (required)")
	cmd.Flags().StringSlice("extra", nil, "Additional channel ids to search")
	cmd.Flags().String("groups", "", "JSON file with keyword groups")
	cmd.Flags().IntP("limit", "l", 0, "Max rows in output (default from config)")
	cmd.Flags().Int("min-coverage", -1, "Minimum group coverage for a cluster (default from config)")

	cmd.MarkFlagRequired("channel")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")
	extra, _ := cmd.Flags().GetStringSlice("extra")
	groupsFile, _ := cmd.Flags().GetString("groups")
	limit, _ := cmd.Flags().GetInt("limit")
	minCoverage, _ := cmd.Flags().GetInt("min-coverage")

	req := search.Request{
		ChannelID:       channel,
		ExtraChannelIDs: extra,
		Keywords:        args,
	}
	if groupsFile != "" {
		b, err := os.ReadFile(groupsFile)
		if err != nil {
			exitErr("read groups", err)
		}
		if err := json.Unmarshal(b, &req.Groups); err != nil {
			exitErr("parse groups", err)
		}
	}

	svc, cfg, _ := openService()
	if limit > 0 || minCoverage >= 0 {
		opts := search.OptionsFromConfig(cfg.Search)
		if limit > 0 {
			opts.MaxOutputLines = limit
		}
		if minCoverage >= 0 {
			opts.MinCoverage = minCoverage
		}
		req.Options = &opts
	}

	resp, err := svc.SearchByKeywords(cmd.Context(), req)
	if err != nil {
		exitErr("search", err)
	}
	if resp.Error != "" {
		exitErr("search", fmt.Errorf("%s", resp.Error))
	}

	if formatFlag == "text" {
		for _, it := range resp.Items {
			if it.Sender == search.MarkerSender {
				fmt.Println(it.Content)
				continue
			}
			fmt.Printf("[%s] %s#%d %s: %s\n", it.TS.UTC().Format(time.RFC3339), it.ChannelID, it.RN, it.Sender, it.Content)
		}
		return
	}

	b, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(b))
}
