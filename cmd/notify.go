package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"ipc-alarm-relay/internal/auth"
	"ipc-alarm-relay/internal/config"
	"ipc-alarm-relay/internal/notify"
)

// Variables to hold flag values
var (
	notifyMessage string
)

// Notify Command
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test notification to the configured ntfy URL",
	Example: `  ipc-alarm-relay notify
  ipc-alarm-relay notify --message "Relay installed on gate controller"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		client := notify.New(notify.Config{
			URL:     cfg.NtfyURL,
			Token:   cfg.NtfyToken,
			Timeout: cfg.NotifyTimeout,
		})

		fmt.Fprintf(cmd.OutOrStdout(), "Sending test notification to %s ...\n", cfg.NtfyURL)
		if err := client.Send(cmd.Context(), notify.NewNotification(notifyMessage)); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Notification sent successfully.")
		return nil
	},
}

// Config Command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Prints the configuration the server would start with. The ntfy token is redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg.NtfyToken = auth.Redact(cfg.NtfyToken)

		out := cmd.OutOrStdout()

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		}
		// -------------------

		metricsAddr := cfg.MetricsAddr
		if metricsAddr == "" {
			metricsAddr = "(disabled)"
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		fmt.Fprintln(w, "---\t-----")
		fmt.Fprintf(w, "%s\t%s\n", config.KeyNtfyURL, cfg.NtfyURL)
		fmt.Fprintf(w, "%s\t%s\n", config.KeyNtfyToken, cfg.NtfyToken)
		fmt.Fprintf(w, "%s\t%s\n", config.KeyListenAddr, cfg.ListenAddr)
		fmt.Fprintf(w, "%s\t%s\n", config.KeyMetricsAddr, metricsAddr)
		fmt.Fprintf(w, "%s\t%s\n", config.KeyNotifyTimeout, cfg.NotifyTimeout.Round(time.Millisecond))
		fmt.Fprintf(w, "%s\t%d\n", config.KeyMaxBodyBytes, cfg.MaxBodyBytes)
		fmt.Fprintf(w, "%s\t%s\n", config.KeyLogLevel, cfg.LogLevel)
		fmt.Fprintf(w, "%s\t%s\n", config.KeyLogFormat, cfg.LogFormat)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.Flags().StringVar(&notifyMessage, "message", "Test notification from ipc-alarm-relay", "Message body to send")

	rootCmd.AddCommand(configCmd)
}
