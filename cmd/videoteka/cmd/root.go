package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the config file specified by the user.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "videoteka",
	Short: "A queued media download daemon built around yt-dlp",
	Long: `Videoteka manages a persistent queue of media downloads fulfilled by
yt-dlp: bounded concurrency, pause/resume/cancel, live progress and a
download history, all exposed over a local HTTP API.`,
}

// Execute runs the root command. It is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ./config.yaml)")
}
