package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records and periods as JSON",
		Long:  "Export records and periods as JSON. Filter by channel with -C.",
		Run:   runExport,
	}

	cmd.Flags().StringP("channel", "C", "", "Filter by channel")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")

	s := openStore(loadConfig())
	exp, err := s.ExportChannel(cmd.Context(), channel)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(exp, "", "  ")
	fmt.Println(string(b))
}
