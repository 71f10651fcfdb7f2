// Package cmd implements the ptoflow command line.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/garyjia/pto-workflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "ptoflow",
	Short: "Document approval workflow engine",
	Long: `ptoflow tracks project documents through draft, review, signature and
archive. Every status change is an authorized, append-only transition.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./configs/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Defaults first so they apply even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("configs")
		viper.AddConfigPath(".")
	}

	config.BindEnv()

	// A missing config file is fine; defaults and environment still apply
	_ = viper.ReadInConfig()
}
