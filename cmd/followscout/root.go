package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	stateDir   string
)

var rootCmd = &cobra.Command{
	Use:   "followscout",
	Short: "Watch Instagram accounts for follow list changes",
	Long: `Follow Scout periodically scans the follow lists of watched Instagram
accounts and reports who they started or stopped following.

Scans rotate through a pool of authenticated identities, each with its
own session and optional proxy, so a single rate-limited or expired
session never stops a pass. Snapshots persist between runs; only real
changes are reported.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .followscout.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory for snapshots and identity health")

	rootCmd.SetVersionTemplate(`Follow Scout {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
