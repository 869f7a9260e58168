package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"ipc-alarm-relay/internal/config"
	"ipc-alarm-relay/internal/logging"
)

var cfgFile string
var jsonOutput bool
var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ipc-alarm-relay",
	Short: "Relay IP camera alarm events to an ntfy webhook",
	Long: `Receives XML alarm events pushed by IP cameras and forwards a
readable summary to an ntfy topic whenever an alarm is active.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { config.InitConfig(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.ipc-alarm-relay.yaml or $HOME/.ipc-alarm-relay.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}
