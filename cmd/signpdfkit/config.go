package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after file, environment and flags are applied.

Signer options whose name contains pass, pin or secret are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appConfig
		cfg.Signer.Options = redactOptions(cfg.Signer.Options)

		out, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
}

var secretMarkers = []string{"pass", "pin", "secret"}

func redactOptions(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
		lk := strings.ToLower(k)
		for _, m := range secretMarkers {
			if strings.Contains(lk, m) {
				out[k] = "***"
				break
			}
		}
	}
	return out
}
