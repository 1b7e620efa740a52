package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List channels with record and period counts",
		Run:   runChannels,
	}

	RootCmd.AddCommand(cmd)
}

func runChannels(cmd *cobra.Command, args []string) {
	svc, _, _ := openService()
	channels, err := svc.Channels(cmd.Context())
	if err != nil {
		exitErr("channels", err)
	}

	if formatFlag == "text" {
		for _, c := range channels {
			fmt.Printf("%s\t%d rows\t%d periods\n", c.ChannelID, c.Rows, c.Periods)
		}
		return
	}

	b, _ := json.MarshalIndent(channels, "", "  ")
	fmt.Println(string(b))
}
