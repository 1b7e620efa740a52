package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/channel-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records and periods from JSON",
		Long:  "Import records and periods from JSON on stdin. Expects the format produced by export; records already present are skipped.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var exp store.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		exitErr("parse json", err)
	}

	s := openStore(loadConfig())
	imported, err := s.Import(cmd.Context(), &exp)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d,"periods":%d}`+"\n", imported, len(exp.Periods))
}
