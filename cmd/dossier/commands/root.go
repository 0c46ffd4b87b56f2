// Package commands implements the CLI commands for dossier.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Harvest connection lists and posts from a social profile",
	Long: `Dossier drives an authenticated headless browser against a social
profile, collects its follower/following/friends lists by incrementally
scrolling the virtualized dialogs, gathers the visible posts, and renders
everything as a static HTML report.

You supply the session: export your logged-in cookie header to a file and
point dossier at it. Dossier never logs in on its own.

Examples:
  # Scrape a profile with a saved cookie session
  dossier scrape -u "https://example.com/someuser/" --cookie-file cookies.txt

  # Followers only, capped, with a machine-readable export
  dossier scrape -u "https://example.com/someuser/" --cookie-file cookies.txt \
      --lists followers --max-entries 1000 --export out.jsonl --format jsonl

  # Watch the browser work
  dossier scrape -u "https://example.com/someuser/" --cookie-file cookies.txt \
      --headless=false --debug`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.dossier.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".dossier")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("DOSSIER")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
