package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "purge [channel]",
		Short: "Delete every record and period of a channel",
		Args:  cobra.ExactArgs(1),
		Run:   runPurge,
	}

	RootCmd.AddCommand(cmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	svc, _, _ := openService()
	n, err := svc.PurgeChannel(cmd.Context(), args[0])
	if err != nil {
		exitErr("purge", err)
	}

	fmt.Printf(`{"ok":true,"deleted":%d}`+"\n", n)
}
