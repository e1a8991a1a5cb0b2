// Confpush - Network Configuration Deployment Tool
//
// A CLI tool that pushes intended configuration to network devices:
//   - Stage / diff / commit lifecycle on the device's candidate config
//   - Dry-run by default (preview the diff, require -x to commit)
//   - Layered credential resolution with safe defaults
//   - Per-device deployment locks via Redis
//   - Audit trail of every attempt
//
// Examples:
//
//	confpush -I inventory.yaml -C configs deploy leaf1-ny          # preview
//	confpush -I inventory.yaml -C configs deploy leaf1-ny -x      # commit
//	confpush -I inventory.yaml -C configs deploy --replace -x leaf1-ny
//	confpush -I inventory.yaml diff leaf1-ny
//	confpush -I inventory.yaml facts leaf1-ny
//	confpush list
//	confpush audit --device leaf1-ny --failures
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/settings"
	"github.com/confpush-net/confpush/pkg/util"
	"github.com/confpush-net/confpush/pkg/version"

	// Transport drivers register themselves on import.
	_ "github.com/confpush-net/confpush/pkg/transport/clissh"
	_ "github.com/confpush-net/confpush/pkg/transport/netconf"
)

var (
	// Global context flags
	inventoryPath string // -I, --inventory
	configDir     string // -C, --config-dir
	auditLogPath  string // --audit-log
	lockAddr      string // --lock

	// Global option flags
	executeMode    bool
	verbose        bool
	jsonLogs       bool
	promptPassword bool

	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "confpush",
	Short:             "Network Configuration Deployment Tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Confpush deploys intended configuration to network devices.

A deployment stages the candidate config on the device, computes the diff
against running state, and commits only when -x is given and the diff is
non-empty. Without -x every run is a dry run: the diff is shown and the
candidate discarded.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			if err := util.SetLogLevel("debug"); err != nil {
				return err
			}
		}
		if jsonLogs {
			util.SetJSONFormat()
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		// Flags win over persisted settings.
		if inventoryPath == "" {
			inventoryPath = userSettings.InventoryPath
		}
		if configDir == "" {
			configDir = userSettings.GetConfigDir()
		}
		if auditLogPath == "" {
			auditLogPath = userSettings.GetAuditLog()
		}
		if lockAddr == "" {
			lockAddr = userSettings.LockAddr
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("confpush", version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "I", "", "device inventory file")
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "C", "", "intended-config directory")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "", "audit trail file")
	rootCmd.PersistentFlags().StringVar(&lockAddr, "lock", "", "Redis address for per-device deployment locks")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "JSON log output")
	rootCmd.PersistentFlags().BoolVar(&promptPassword, "prompt-password", false, "prompt for device password instead of resolving secrets")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
}
