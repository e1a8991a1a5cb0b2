package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/cli"
	"github.com/confpush-net/confpush/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.confpush/settings.json.

Settings provide defaults for context flags:
  - inventory:  Used when -I is not specified
  - config-dir: Intended-config directory (-C default)
  - audit-log:  Audit trail file (--audit-log default)
  - lock:       Redis address for deployment locks (--lock default)

Examples:
  confpush settings show
  confpush settings set inventory /etc/confpush/inventory.yaml
  confpush settings set lock 127.0.0.1:6379
  confpush settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable(os.Stdout, "SETTING", "VALUE")

		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}

		printSetting("inventory", s.InventoryPath)
		printSetting("config-dir", s.ConfigDir)
		printSetting("audit-log", s.AuditLog)
		printSetting("lock", s.LockAddr)

		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		switch args[0] {
		case "inventory":
			s.InventoryPath = args[1]
		case "config-dir":
			s.ConfigDir = args[1]
		case "audit-log":
			s.AuditLog = args[1]
		case "lock":
			s.LockAddr = args[1]
		default:
			return fmt.Errorf("unknown setting %q (inventory, config-dir, audit-log, lock)", args[0])
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset all settings to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		s.Clear()
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("Settings cleared.")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
}
