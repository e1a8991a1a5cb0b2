package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/cli"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := loadInventory()
		if err != nil {
			return err
		}

		t := cli.NewTable(os.Stdout, "DEVICE", "ADDRESS", "DRIVER", "SECRETS GROUP")
		for _, name := range inv.Names() {
			target, _ := inv.Get(name)
			group := target.SecretsGroup
			if group == "" {
				group = "(default credentials)"
			}
			t.Row(name, target.MgmtAddr, target.Driver, group)
		}
		t.Flush()
		return nil
	},
}
