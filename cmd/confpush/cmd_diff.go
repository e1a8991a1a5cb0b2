package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/cli"
	"github.com/confpush-net/confpush/pkg/deploy"
	"github.com/confpush-net/confpush/pkg/intent"
)

var diffCmd = &cobra.Command{
	Use:   "diff <device>",
	Short: "Show the pending configuration diff for a device",
	Long: `Show what would change if the intended configuration were deployed.

Always a dry run: the candidate is staged, diffed, and discarded. Commit
flags are ignored.

Examples:
  confpush diff leaf1-ny`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		inv, err := loadInventory()
		if err != nil {
			return err
		}
		target, err := inv.Get(name)
		if err != nil {
			return err
		}
		resolver, err := newResolver()
		if err != nil {
			return err
		}

		config, err := intent.NewFileStore(configDir).GetIntendedConfig(name)
		if err != nil {
			return err
		}

		result := deploy.New(resolver).Deploy(context.Background(), deploy.Request{
			Target:          target,
			CandidateConfig: config,
			DryRun:          true,
		})

		switch result.Status {
		case deploy.NoOpNoDiff:
			fmt.Println("No configuration changes.")
		case deploy.DryRunDiscarded:
			fmt.Println(cli.ColorizeDiff(result.DiffText))
		case deploy.Failed:
			return result.Err
		}
		return nil
	},
}
