package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/remiblancher/signpdfkit/internal/audit"
	"github.com/remiblancher/signpdfkit/internal/config"
	"github.com/remiblancher/signpdfkit/pkg/revocation"
	"github.com/remiblancher/signpdfkit/pkg/signpdf"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a PDF document",
	Long: `Sign a PDF document.

The result is printed as JSON:
  {"response_code":0,"response_status":"success"}

Response codes:
  0  success
  1  Failed to open/read document
  3  Input parameters is incorrect
  4  Failed when process PDF
  5  PDF File not found
  6  Visualization Image not found

The command exits with status 1 when the code is not 0.

Signer options (for example the email and passcode of a remote signing
account) are passed with repeated --option key=value flags and are
merged over signer.options from the configuration.`,
	RunE: runSign,
}

var (
	signFlags   = signpdf.DefaultSignRequest("", "")
	signType    string
	signSubf    string
	signVis     string
	signDSS     string
	signOptions map[string]string
)

func init() {
	def := signpdf.DefaultSignRequest("", "")
	f := signCmd.Flags()

	f.StringVar(&signFlags.InputPath, "in", "", "Input PDF (required)")
	f.StringVar(&signFlags.OutputPath, "out", "", "Output PDF (required)")
	f.StringVar(&signFlags.ImagePath, "image", def.ImagePath, "Appearance image")
	f.StringVar(&signFlags.URL, "url", def.URL, "URL encoded in QR appearances")
	f.StringVar(&signFlags.Location, "location", def.Location, "Signing location")
	f.StringVar(&signFlags.Reason, "reason", def.Reason, "Signing reason")
	f.StringVar(&signFlags.ContactInfo, "contact", def.ContactInfo, "Signer contact information")
	f.StringVar(&signFlags.FieldID, "field", def.FieldID, "Signature field name")
	f.StringVar(&signFlags.Character, "char", def.Character, "Anchor character for *_from_char visibility")
	f.IntVar(&signFlags.Page, "page", def.Page, "Page number (1-based)")
	f.Float64Var(&signFlags.Rect.X, "x", def.Rect.X, "Rectangle lower-left x")
	f.Float64Var(&signFlags.Rect.Y, "y", def.Rect.Y, "Rectangle lower-left y")
	f.Float64Var(&signFlags.Rect.Width, "width", def.Rect.Width, "Rectangle width")
	f.Float64Var(&signFlags.Rect.Height, "height", def.Rect.Height, "Rectangle height")

	f.StringVar(&signType, "type", def.SignatureType.String(), "Signature type: signature, seal")
	f.StringVar(&signSubf, "subfilter", def.Subfilter.String(), "Subfilter: adbe, pades")
	f.StringVar(&signVis, "visibility", def.Visibility.String(),
		"Visibility: invisible, visible_image, visible_qr, visible_image_from_char, visible_qr_from_char")
	f.StringVar(&signDSS, "dss", def.DSS.String(), "Embed revocation data: no, yes")
	f.StringToStringVar(&signOptions, "option", nil, "Signer option key=value (repeatable)")

	_ = signCmd.MarkFlagRequired("in")
	_ = signCmd.MarkFlagRequired("out")
}

// buildSignRequest resolves the enum flags into a request.
func buildSignRequest() (*signpdf.SignRequest, error) {
	req := *signFlags
	var err error
	if req.SignatureType, err = signpdf.ParseSignatureType(signType); err != nil {
		return nil, err
	}
	if req.Subfilter, err = signpdf.ParseSubfilter(signSubf); err != nil {
		return nil, err
	}
	if req.Visibility, err = signpdf.ParseVisibility(signVis); err != nil {
		return nil, err
	}
	if req.DSS, err = signpdf.ParseDSSMode(signDSS); err != nil {
		return nil, err
	}
	return &req, nil
}

func runSign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attemptID := signpdf.AttemptID(ctx)
	ctx = signpdf.ContextWithAttemptID(ctx, attemptID)

	req, err := buildSignRequest()
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		appLogger.Info("rejected sign request", zap.Error(err))
		res := signpdf.SignResult{
			ResponseCode:   int(signpdf.CodeInvalidInput),
			ResponseStatus: signpdf.CodeInvalidInput.Status(),
		}
		return reportSign(cmd, attemptID, req, res)
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

	opts := signpdf.Options(appConfig.Signer.Options).Clone()
	for k, v := range signOptions {
		opts[k] = v
	}

	appLogger.Debug("signing", zap.String("engine", engineInfo), zap.String("signer", appConfig.Signer.Type))
	wf := signpdf.New(eng, signer,
		signpdf.WithOptions(opts),
		signpdf.WithCollector(newCollector(appConfig)),
		signpdf.WithLogger(appLogger),
	)

	start := time.Now()
	res := wf.Sign(ctx, req)
	appLogger.Debug("sign attempt finished", zap.Duration("elapsed", time.Since(start)))

	return reportSign(cmd, attemptID, req, res)
}

// reportSign prints the result, records the audit event and maps a
// non-zero code to a failed exit status.
func reportSign(cmd *cobra.Command, attemptID string, req *signpdf.SignRequest, res signpdf.SignResult) error {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.JSON())

	rec := audit.SignRecord{
		Input:        signFlags.InputPath,
		Output:       signFlags.OutputPath,
		AttemptID:    attemptID,
		Signer:       appConfig.Signer.Type,
		ResponseCode: res.ResponseCode,
		Status:       res.ResponseStatus,
	}
	if req != nil {
		rec.SignatureType = req.SignatureType.String()
		rec.Subfilter = req.Subfilter.String()
		rec.Visibility = req.Visibility.String()
		rec.DSS = req.DSS == signpdf.DSSYes
	}
	if err := audit.LogPDFSigned(rec); err != nil {
		return err
	}

	if !res.Success() {
		return errReported
	}
	return nil
}

func newCollector(cfg *config.Config) *revocation.Collector {
	return revocation.NewCollector(cfg.RevocationSettings(), revocation.WithLogger(appLogger))
}
