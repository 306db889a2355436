package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"followscout/pkg/config"
	"followscout/pkg/logger"
	"followscout/pkg/runner"
	"followscout/pkg/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run summary and identity health",
	Long: `Show the persisted summary of the most recent pass and the current
health of every scanning identity.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	// Status only needs the state directory, so a config without targets
	// or identities is still fine here.
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return err
	}
	_ = cfg.LoadFromEnv()
	if stateDir != "" {
		cfg.State.Directory = stateDir
	}

	kv, err := state.NewFileKV(cfg.State.Directory)
	if err != nil {
		return fmt.Errorf("failed to open state directory: %w", err)
	}
	store := state.NewStore(kv, logger.NewNopLogger())

	var report runner.Report
	if err := store.LoadLastRunSummary(&report); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			fmt.Println("No completed runs yet.")
			return nil
		}
		return fmt.Errorf("failed to load last run: %w", err)
	}

	printReport(&report)

	records, err := store.LoadIdentityHealth()
	if err != nil {
		return fmt.Errorf("failed to load identity health: %w", err)
	}
	if len(records) > 0 {
		fmt.Printf("\n%-20s %-14s %-9s %s\n", "IDENTITY", "HEALTH", "FAILURES", "COOLDOWN UNTIL")
		for _, rec := range records {
			cooldown := "-"
			if !rec.CooldownUntil.IsZero() {
				cooldown = rec.CooldownUntil.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-20s %-14s %-9d %s\n", rec.ID, rec.Health, rec.FailureCount, cooldown)
		}
	}
	return nil
}
