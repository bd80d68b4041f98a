// Command signpdfkit signs and verifies PDF documents through the native
// signing engine.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/audit"
	"github.com/remiblancher/signpdfkit/internal/config"
	"github.com/remiblancher/signpdfkit/internal/logging"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath   string
	logLevel     string
	auditLogPath string
)

// Effective configuration and logger, set up by PersistentPreRunE.
var (
	appConfig *config.Config
	appLogger = zap.NewNop()
)

// errReported signals a failure whose details were already printed.
var errReported = errors.New("command failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "signpdfkit",
	Short: "Sign and verify PDF documents",
	Long: `signpdfkit signs PDF documents through the native SignPDFKit engine.

The engine computes the digest of the prepared document, an external
signer turns it into a CMS signature (remote signing service, local key
or PKCS#11 token), and the engine embeds the signature. With --dss yes,
OCSP and CRL evidence for the signer chain is fetched and embedded too.

Configuration is read from --config (or SIGNPDFKIT_CONFIG), then
SIGNPDFKIT_* environment variables, then flags.

Examples:
  # Sign with the remote signer configured in signpdfkit.yaml
  signpdfkit sign --config signpdfkit.yaml --in contract.pdf --out contract-signed.pdf

  # Visible PAdES signature with embedded revocation data
  signpdfkit sign --in a.pdf --out b.pdf --visibility visible_image --image stamp.png \
      --subfilter pades --dss yes --page 2 --x 50 --y 50 --width 120 --height 60

  # Verify
  signpdfkit verify contract-signed.pdf

  # Serve the REST API
  signpdfkit serve --config signpdfkit.yaml`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err := logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appLogger = logger

		if err := audit.InitFile(cfg.Audit.Path); err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = appLogger.Sync()
		return audit.Close()
	},
}

// loadConfig layers file, environment and global flags.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if auditLogPath != "" {
		cfg.Audit.Path = auditLogPath
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML configuration (or set SIGNPDFKIT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set SIGNPDFKIT_AUDIT_PATH)")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(revocationCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
}
