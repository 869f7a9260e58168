package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"ipc-alarm-relay/internal/alarm"
	"ipc-alarm-relay/pkg/models"
)

// parseResult is the --json output of the parse command.
type parseResult struct {
	Event   models.AlarmEvent `json:"event"`
	Notify  bool              `json:"notify"`
	Message string            `json:"message,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Show what the relay would do with a saved alarm payload",
	Long: `Runs a camera XML payload through the same parse, extract and compose
steps as the server and prints the result. Nothing is sent.`,
	Example: `  ipc-alarm-relay parse event.xml
  curl -s http://camera/event | ipc-alarm-relay parse --json -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := readPayload(cmd, args)
		if err != nil {
			return err
		}

		root, err := alarm.Parse(body)
		if err != nil {
			return err
		}
		ev, err := alarm.Extract(root)
		if err != nil {
			return err
		}
		msg, ok := alarm.Compose(ev)

		out := cmd.OutOrStdout()

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(parseResult{Event: ev, Notify: ok, Message: msg})
		}
		// -------------------

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ALARM\tACTIVE")
		fmt.Fprintln(w, "-----\t------")
		for _, name := range sortedKeys(ev.Alarms) {
			fmt.Fprintf(w, "%s\t%t\n", name, ev.Alarms[name])
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "FIELD\tVALUE")
		fmt.Fprintln(w, "-----\t-----")
		for _, name := range sortedKeys(ev.Device) {
			fmt.Fprintf(w, "%s\t%s\n", name, ev.Device[name])
		}
		fmt.Fprintf(w, "dataTime\t%s\n", ev.Time)
		w.Flush()

		fmt.Fprintln(out)
		if !ok {
			fmt.Fprintln(out, "No alarms detected. Nothing would be sent.")
			return nil
		}
		fmt.Fprintln(out, "Notification message:")
		fmt.Fprintln(out, msg)
		return nil
	},
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
