// Package main implements the interview CLI: it runs a timed mock interview against the
// camera and microphone and prints the coaching feedback afterwards.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "interview",
	Short:         "Practice job interviews with timed questions and recorded answers",
	SilenceUsage:  true,
	SilenceErrors: false,
}
