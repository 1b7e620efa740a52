package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/channel-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "append [text]",
		Short: "Append a record to a channel",
		Long: "Append a record to a channel. Text can be a positional arg or piped via stdin. " +
			"With --payload the stdin or argument is stored as the raw JSON payload.",
		Run: runAppend,
	}

	cmd.Flags().StringP("channel", "C", "", "Channel id (required)")
	cmd.Flags().StringP("role", "r", "user", "Role: user, assistant, tool, system")
	cmd.Flags().String("name", "", "Sender display name")
	cmd.Flags().String("turn", "", "Turn id")
	cmd.Flags().String("ts", "", "Timestamp, RFC3339 (default: now)")
	cmd.Flags().Bool("payload", false, "Treat the input as a raw JSON payload")

	cmd.MarkFlagRequired("channel")

	RootCmd.AddCommand(cmd)
}

func runAppend(cmd *cobra.Command, args []string) {
	channel, _ := cmd.Flags().GetString("channel")
	role, _ := cmd.Flags().GetString("role")
	name, _ := cmd.Flags().GetString("name")
	turn, _ := cmd.Flags().GetString("turn")
	tsStr, _ := cmd.Flags().GetString("ts")
	rawPayload, _ := cmd.Flags().GetBool("payload")

	input := readInput(args)
	if strings.TrimSpace(input) == "" {
		exitErr("append", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	var ts time.Time
	if tsStr != "" {
		t, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			exitErr("parse --ts", err)
		}
		ts = t
	}

	params := store.AppendParams{
		ChannelID: channel,
		TS:        ts,
		Role:      role,
		TurnID:    turn,
	}
	if rawPayload {
		if !json.Valid([]byte(input)) {
			exitErr("append", fmt.Errorf("--payload input is not valid JSON"))
		}
		params.Payload = json.RawMessage(input)
	} else {
		text := strings.TrimSpace(input)
		msg := map[string]string{"role": role, "content": text}
		if name != "" {
			msg["name"] = name
		}
		b, _ := json.Marshal(msg)
		params.Payload = b
		params.DerivedText = text
	}

	svc, _, _ := openService()
	res, err := svc.AppendRecord(cmd.Context(), params)
	if err != nil {
		exitErr("append", err)
	}

	b, _ := json.Marshal(res)
	fmt.Println(string(b))
}

// readInput joins positional args, or reads piped stdin when there are none.
func readInput(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}
