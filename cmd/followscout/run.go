package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"followscout/pkg/auth"
	"followscout/pkg/config"
	"followscout/pkg/identity"
	"followscout/pkg/instagram"
	"followscout/pkg/logger"
	"followscout/pkg/notify"
	"followscout/pkg/ratelimit"
	"followscout/pkg/retry"
	"followscout/pkg/runner"
	"followscout/pkg/scanner"
	"followscout/pkg/state"
)

var runTargets []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scan pass over all configured targets",
	Long: `Run one complete pass: scan every configured target's follow list,
compare against the stored snapshot, persist the new state, and report
the changes.

A pass succeeds even when some targets fail; their snapshots are kept
and the failures appear in the run summary. Only a configuration error
exits non-zero.`,
	Example: `  # Scan the targets from the config file
  followscout run

  # Scan specific targets, overriding the config
  followscout run --target some_account --target another_account`,
	RunE: runPass,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVar(&runTargets, "target", nil, "target account (repeatable, overrides config)")
}

func runPass(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	flags := make(map[string]interface{})
	if len(runTargets) > 0 {
		flags["targets"] = runTargets
	}
	if stateDir != "" {
		flags["state-dir"] = stateDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	for i, target := range cfg.Targets {
		cfg.Targets[i] = instagram.SanitizeUsername(target)
		if !instagram.IsValidUsername(cfg.Targets[i]) {
			return fmt.Errorf("invalid target handle: %q", target)
		}
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("follow scout starting")

	identities, err := resolveIdentities(cfg)
	if err != nil {
		return err
	}

	kv, err := state.NewFileKV(cfg.State.Directory)
	if err != nil {
		return fmt.Errorf("failed to open state directory: %w", err)
	}
	store := state.NewStore(kv, log)

	pool := identity.NewPool(identities, &retry.ExponentialBackoff{
		BaseDelay:    cfg.RateLimit.BackoffBase,
		MaxDelay:     cfg.RateLimit.BackoffMax,
		Multiplier:   cfg.RateLimit.BackoffMultiplier,
		JitterFactor: 0.1,
	}, log)

	governor := ratelimit.NewGovernor(cfg.RateLimit, log)
	client := instagram.NewClient(cfg.Scan.RequestTimeout, cfg.Scan.MaxFollowSize, log)
	sc := scanner.New(client, pool, governor, cfg.Scan.MaxRetries, log)

	var notifier runner.Notifier = notify.NewLogNotifier(notify.Options{
		OnError:      cfg.Notifications.Enabled && cfg.Notifications.OnError,
		OnSuspicious: cfg.Notifications.Enabled && cfg.Notifications.OnSuspicious,
	}, log)

	controller := runner.New(cfg, sc, pool, store, notifier, log)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Scan.PassTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := controller.Run(ctx)
	if err != nil {
		return fmt.Errorf("pass failed: %w", err)
	}

	printReport(report)
	return nil
}

// resolveIdentities turns the configured identities into usable ones,
// resolving keyring and environment secret references.
func resolveIdentities(cfg *config.Config) ([]identity.Identity, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	identities := make([]identity.Identity, 0, len(cfg.Identities))
	for _, ic := range cfg.Identities {
		secret, err := manager.ResolveSecret(ic.ID, ic.SessionSecret)
		if err != nil {
			return nil, fmt.Errorf("identity %q: %w", ic.ID, err)
		}
		identities = append(identities, identity.Identity{
			ID:            ic.ID,
			SessionSecret: secret,
			Proxy:         ic.Proxy,
		})
	}
	return identities, nil
}

func printReport(report *runner.Report) {
	fmt.Printf("\nRun %s finished in %s\n", report.RunID,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Printf("  targets: %d scanned, %d succeeded, %d failed\n",
		report.Scanned, report.Succeeded, report.Failed)
	fmt.Printf("  follow events: %d\n", report.Events)
	fmt.Printf("  identities: %d active, %d out of rotation\n",
		report.IdentityStats.Active, report.IdentityStats.Disabled)

	for _, target := range report.Targets {
		line := fmt.Sprintf("  %-24s %s", target.Target, target.Status)
		if target.Events > 0 {
			line += fmt.Sprintf(" (%d events)", target.Events)
		}
		if target.Status == runner.StatusFailed {
			line += fmt.Sprintf(" [%s] %s", target.FailureKind, target.Error)
		}
		fmt.Println(line)
	}

	for _, warning := range report.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}
