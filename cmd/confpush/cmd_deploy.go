package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/audit"
	"github.com/confpush-net/confpush/pkg/cli"
	"github.com/confpush-net/confpush/pkg/deploy"
	"github.com/confpush-net/confpush/pkg/intent"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/transport"
	"github.com/confpush-net/confpush/pkg/util"
)

var (
	deployReplace  bool
	deployNoCommit bool
	deployTimeout  time.Duration
	lockTTL        time.Duration
)

var deployCmd = &cobra.Command{
	Use:   "deploy <device> [device...]",
	Short: "Deploy intended configuration to device(s)",
	Long: `Deploy the intended configuration to one or more devices.

Each device gets one independent deployment attempt: connect, stage the
candidate, diff against running state, then commit or discard.

Without -x: dry run (diff shown, candidate discarded)
With -x:    commit when the diff is non-empty
--no-commit stages and diffs live but always discards
--replace   supersedes the entire running configuration (use with caution)

When --lock is configured, a Redis lock keyed by device name serializes
concurrent deployments against the same target.

Examples:
  confpush deploy leaf1-ny                 # preview
  confpush deploy leaf1-ny -x             # commit
  confpush deploy --replace -x leaf1-ny
  confpush deploy leaf1-ny leaf2-ny -x`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := loadInventory()
		if err != nil {
			return err
		}
		resolver, err := newResolver()
		if err != nil {
			return err
		}

		store := intent.NewFileStore(configDir)
		deployer := deploy.New(resolver)

		var locker *deploy.Locker
		if lockAddr != "" {
			locker = deploy.NewLocker(lockAddr)
			defer locker.Close()
		}

		auditLog, err := audit.NewFileLogger(auditLogPath, audit.RotationConfig{
			MaxSize:    10 << 20,
			MaxBackups: 5,
		})
		if err != nil {
			return err
		}
		defer auditLog.Close()

		failed := 0
		for _, name := range args {
			if err := deployOne(inv, store, deployer, locker, auditLog, name); err != nil {
				util.WithDevice(name).Errorf("deployment failed: %v", err)
				failed++
			}
			fmt.Println()
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d deployment(s) failed", failed, len(args))
		}
		return nil
	},
}

func deployOne(inv *inventory.Inventory, store intent.Store, deployer *deploy.Deployer,
	locker *deploy.Locker, auditLog audit.Logger, name string) error {

	target, err := inv.Get(name)
	if err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}

	// Intended config is fetched before any connection: a missing intent
	// must never open a session.
	config, err := store.GetIntendedConfig(name)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if deployTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deployTimeout)
		defer cancel()
	}

	holder := currentUser()
	if locker != nil {
		if err := locker.Acquire(ctx, name, holder, lockTTL); err != nil {
			return err
		}
		defer func() {
			if rerr := locker.Release(context.Background(), name, holder); rerr != nil {
				util.WithDevice(name).Warnf("releasing deployment lock: %v", rerr)
			}
		}()
	}

	req := deploy.Request{
		Target:          target,
		CandidateConfig: config,
		DryRun:          !executeMode,
		Replace:         deployReplace,
		CommitOnSuccess: !deployNoCommit,
	}
	result := deployer.Deploy(ctx, req)

	if aerr := auditLog.Log(audit.NewEvent(holder, req, result)); aerr != nil {
		util.WithDevice(name).Warnf("writing audit trail: %v", aerr)
	}

	printResult(name, result)

	if result.Status == deploy.Failed {
		return result.Err
	}
	return nil
}

func printResult(name string, result deploy.Result) {
	fmt.Printf("=== %s ===\n", cli.Bold(name))

	if result.DiffText != "" {
		fmt.Println(cli.ColorizeDiff(result.DiffText))
	}

	switch result.Status {
	case deploy.Committed:
		fmt.Printf("  %s committed in %s\n", cli.Green("OK"), result.Duration.Round(time.Millisecond))
		if hostname, ok := result.Facts["hostname"]; ok {
			fmt.Printf("  device %s is running the new configuration\n", hostname)
		}
	case deploy.NoOpNoDiff:
		fmt.Printf("  %s no configuration changes\n", cli.Green("OK"))
	case deploy.DryRunDiscarded:
		fmt.Printf("  %s dry run, changes discarded (re-run with -x to commit)\n", cli.Yellow("DRY RUN"))
	case deploy.Discarded:
		fmt.Printf("  %s commit disabled, changes discarded\n", cli.Yellow("DISCARDED"))
	case deploy.RolledBack:
		fmt.Printf("  %s commit failed, device rolled back: %v\n", cli.Yellow("ROLLED BACK"), result.Err)
	case deploy.Failed:
		fmt.Printf("  %s %v\n", cli.Red("FAILED"), result.Err)
		if transport.KindOf(result.Err) == transport.KindConnect {
			fmt.Println(connectHint)
		}
	}
}

func init() {
	deployCmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "commit changes (default is dry run)")
	deployCmd.Flags().BoolVar(&deployReplace, "replace", false, "replace entire configuration instead of merging")
	deployCmd.Flags().BoolVar(&deployNoCommit, "no-commit", false, "stage and diff but never commit")
	deployCmd.Flags().DurationVar(&deployTimeout, "timeout", 5*time.Minute, "overall per-device deployment timeout")
	deployCmd.Flags().DurationVar(&lockTTL, "lock-ttl", 10*time.Minute, "deployment lock expiry")
}
