package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/remiblancher/signpdfkit/internal/api/router"
	"github.com/remiblancher/signpdfkit/internal/api/server"
	"github.com/remiblancher/signpdfkit/internal/api/service"
	"github.com/remiblancher/signpdfkit/internal/metrics"
	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

// Serve command flags
var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API",
	Long: `Start the signpdfkit REST API.

Endpoints:
  POST /api/v1/sign                 Sign a PDF
  POST /api/v1/verify               Verify a PDF
  POST /api/v1/revocation/collect   Fetch OCSP/CRL evidence
  GET  /health, /ready              Liveness and readiness
  GET  /metrics                     Prometheus metrics
  GET  /api/openapi.yaml            OpenAPI specification

The server section of the configuration sets address, timeouts and TLS.

Examples:
  signpdfkit serve --config signpdfkit.yaml
  signpdfkit serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	srvCfg := server.FromAppConfig(appConfig.Server)
	if cmd.Flags().Changed("host") {
		srvCfg.Host = serveHost
	}
	if servePort != 0 {
		srvCfg.Port = servePort
	}

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	eng, engineInfo, err := openEngine(appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	signer, closer, err := newSigner(appConfig.Signer, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	handler := router.New(&router.Config{
		Version:    version,
		EngineInfo: engineInfo,
		Service: service.Config{
			Engine:     eng,
			Signer:     signer,
			SignerName: appConfig.Signer.Type,
			Options:    signpdf.Options(appConfig.Signer.Options),
			Collector: revocation.NewCollector(appConfig.RevocationSettings(),
				revocation.WithLogger(appLogger),
				revocation.WithObserver(rec),
			),
			Recorder: rec,
			Logger:   appLogger,
		},
		Metrics:  rec,
		Gatherer: reg,
		Logger:   appLogger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(srvCfg, handler, appLogger).Start(ctx)
}

