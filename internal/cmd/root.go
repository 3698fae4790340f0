package cmd

import (
	"fmt"
	"os"

	"github.com/atikulmunna/fleetwatch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "fleetwatch",
	Short: "Fleetwatch: deep space fleet telemetry",
	Long: `Fleetwatch streams simulated fleet telemetry to a web dashboard, a
terminal dashboard or plain stdout. Lines come from a generative text
service when an API key is configured, and from a local seed corpus when
it is not (or when the service is rate limited).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.fleetwatch.yaml, then ./.fleetwatch.yaml)")
	flags.StringSlice("seeds", nil, "seed file glob patterns, repeatable (e.g. \"seeds/**/*.log\")")
	flags.Bool("paused", false, "start with the stream idle")

	cobra.CheckErr(viper.BindPFlag(config.KeySeeds, flags.Lookup("seeds")))
	cobra.CheckErr(viper.BindPFlag(config.KeyPaused, flags.Lookup("paused")))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".fleetwatch")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())
	cobra.CheckErr(config.BindEnv(viper.GetViper()))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			cobra.CheckErr(fmt.Errorf("read config: %w", err))
		}
	}
}

// loadConfig decodes the merged flag, env and file settings.
func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}
