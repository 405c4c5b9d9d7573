package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	bridgeCmd "github.com/pitwall-live/telemetry-bridge-go/pkg/cmd/bridge"
	replayCmd "github.com/pitwall-live/telemetry-bridge-go/pkg/cmd/replay"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/config"
	"github.com/pitwall-live/telemetry-bridge-go/version"
)

const envPrefix = "PWB"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "pitwall-bridge",
	Short:   "Live telemetry estimation bridge for the pitwall backend",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.pitwall-bridge.yml)")

	rootCmd.PersistentFlags().StringVar(&config.IngestURL, "ingest-url",
		"http://127.0.0.1:5000/api/telemetry/ingest",
		"URL of the ingestion endpoint receiving telemetry snapshots")
	rootCmd.PersistentFlags().StringVar(&config.SourceURL, "source-url",
		"http://127.0.0.1:8182/telemetry/frame",
		"URL of the simulator frame endpoint")
	rootCmd.PersistentFlags().StringVar(&config.Interval, "interval",
		"500ms",
		"tick interval of the polling loop")
	rootCmd.PersistentFlags().StringVar(&config.PublishTimeout, "publish-timeout",
		"1s",
		"timeout for the outbound snapshot publish")
	rootCmd.PersistentFlags().StringVar(&config.StateFile, "state-file",
		"stint_state.json",
		"path of the durable stint/usage snapshot")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL, "nats-url",
		"",
		"when set, snapshots are also published to this NATS server")
	rootCmd.PersistentFlags().StringVar(&config.NatsSubject, "nats-subject",
		"pitwall.telemetry.snapshot",
		"NATS subject for snapshot publishing")
	rootCmd.PersistentFlags().StringVar(&config.TuningFile, "tuning",
		"",
		"optional YAML tuning profile for the usage estimator (reloaded on change)")
	rootCmd.PersistentFlags().StringVar(&config.WaitForIngest, "wait-for-ingest",
		"0s",
		"duration to wait for the ingest endpoint to be reachable at startup")

	// add commands here
	rootCmd.AddCommand(bridgeCmd.NewBridgeCmd())
	rootCmd.AddCommand(replayCmd.NewReplayCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pitwall-bridge"
		// (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pitwall-bridge")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --state-file to PWB_STATE_FILE
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
