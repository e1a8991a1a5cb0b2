package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/confpush-net/confpush/pkg/audit"
	"github.com/confpush-net/confpush/pkg/cli"
)

var (
	auditDevice   string
	auditUser     string
	auditFailures bool
	auditLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the deployment audit trail",
	Long: `Query past deployment attempts recorded in the audit trail.

Examples:
  confpush audit
  confpush audit --device leaf1-ny
  confpush audit --failures --limit 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := audit.NewFileLogger(auditLogPath, audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer logger.Close()

		events, err := logger.Query(audit.Filter{
			Device:      auditDevice,
			User:        auditUser,
			FailureOnly: auditFailures,
			Limit:       auditLimit,
		})
		if err != nil {
			return err
		}

		t := cli.NewTable(os.Stdout, "TIME", "DEVICE", "USER", "STATUS", "DIFF", "ERROR")
		for _, e := range events {
			status := string(e.Status)
			if e.Failed() {
				status = cli.Red(status)
			}
			errText := e.Error
			if len(errText) > 60 {
				errText = errText[:57] + "..."
			}
			t.Row(
				e.Timestamp.Format(time.DateTime),
				e.Device,
				e.User,
				status,
				formatDiffLines(e.DiffLines),
				errText,
			)
		}
		t.Flush()
		return nil
	},
}

func formatDiffLines(n int) string {
	if n == 0 {
		return "-"
	}
	return cli.Yellow(strconv.Itoa(n) + " lines")
}

func init() {
	auditCmd.Flags().StringVar(&auditDevice, "device", "", "filter by device")
	auditCmd.Flags().StringVar(&auditUser, "user", "", "filter by user")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "failed attempts only")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "max events to show")
}
