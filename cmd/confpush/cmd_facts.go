package main

import (
	"context"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/cli"
	"github.com/confpush-net/confpush/pkg/transport"
	"github.com/confpush-net/confpush/pkg/util"
)

var factsCmd = &cobra.Command{
	Use:   "facts <device>",
	Short: "Show a state snapshot from a device",
	Long: `Connect to a device and print its fact snapshot (hostname and
whatever else the transport driver reports).

Examples:
  confpush facts leaf1-ny`,
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
		if err := target.Validate(); err != nil {
			return err
		}
		resolver, err := newResolver()
		if err != nil {
			return err
		}

		tr, err := transport.New(target.Driver)
		if err != nil {
			return err
		}

		ctx := context.Background()
		sess, err := tr.Open(ctx, target, resolver.Resolve(target))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := sess.Close(ctx); cerr != nil {
				util.WithDevice(name).Warnf("closing session: %v", cerr)
			}
		}()

		facts, err := sess.Facts(ctx)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		t := cli.NewTable(os.Stdout, "FACT", "VALUE")
		for _, k := range keys {
			t.Row(k, facts[k])
		}
		t.Flush()
		return nil
	},
}
