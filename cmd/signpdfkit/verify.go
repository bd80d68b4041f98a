package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/signpdfkit/internal/audit"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

var verifyCheckOnly bool

var verifyCmd = &cobra.Command{
	Use:   "verify <file.pdf>",
	Short: "Verify the signatures of a PDF document",
	Long: `Print the native engine's verification report for a PDF document.

The report is printed verbatim. When the engine produces no report the
command prints nothing to stdout and exits with status 1.

With --check-only, only report whether the document carries a signature.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyCheckOnly, "check-only", false,
		"Only check whether a signature is present")
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := cmd.Context()

	eng, _, err := openEngine(appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if verifyCheckOnly {
		checker, ok := eng.(signatureChecker)
		if !ok {
			return fmt.Errorf("engine cannot check for signatures")
		}
		exists, err := checker.SignatureExists(ctx, path)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed: %t\n", exists)
		if !exists {
			return errReported
		}
		return nil
	}

	report, ok, err := signpdf.NewVerifier(eng, appLogger).Verify(ctx, path)
	if err != nil {
		return err
	}
	if err := audit.LogPDFVerified(nil, path, "", ok); err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "no verification report for %s\n", path)
		return errReported
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), report)
	return nil
}
