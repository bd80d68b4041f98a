package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/signpdfkit/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log commands",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <audit.jsonl>",
	Short: "Verify the hash chain of an audit log",
	Long: `Verify that every event of an audit log chains to its predecessor.

Examples:
  signpdfkit audit verify /var/log/signpdfkit/audit.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := audit.VerifyChain(args[0])
		if err != nil {
			return fmt.Errorf("audit log verification failed after %d events: %w", n, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "OK: %d events verified\n", n)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
}
