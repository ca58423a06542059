package scan

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/cmd/version"
	"github.com/scan-web/cspaudit/internal/classifier"
	"github.com/scan-web/cspaudit/internal/sarifout"
	"github.com/scan-web/cspaudit/internal/scanner"
	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	sharederrors "github.com/scan-web/cspaudit/pkg/shared/errors"
	"github.com/scan-web/cspaudit/pkg/shared/files"
	"github.com/scan-web/cspaudit/pkg/shared/logger"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	Threads    int
	OutputFile string
	SarifFile  string
}

var (
	AppConfig        *config.Config
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Scanning a checked-out source tree with the default worker count
  cspaudit scan /srv/checkouts/legacy-portal

  # Scanning with eight workers and writing the findings to a JSON file
  cspaudit scan -j 8 --output findings.json /srv/checkouts/legacy-portal

  # Writing a SARIF report for code review tooling
  cspaudit scan --sarif findings.sarif /srv/checkouts/legacy-portal`
)

var ScanCmd = &cobra.Command{
	Use:                   "scan [-j THREADS_NUMBER] [--output PATH] [--sarif PATH] SOURCE_ROOT",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scans a source tree for content incompatible with a strict content security policy",
	RunE:                  runScanCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "core-scan")

	if err := validateScanArgs(&scanOptions, args); err != nil {
		lg.Error("invalid scan arguments", "error", err)
		return err
	}

	cfg := *AppConfig
	if scanOptions.Threads > 0 {
		cfg.Scanner.Threads = scanOptions.Threads
	}

	cl := classifier.New(classifier.Options{SuppressCommented: cfg.Scanner.SuppressCommented})
	s := scanner.New(&cfg, cl, lg)
	report, err := s.Scan(cmd.Context(), args[0])
	if err != nil {
		if report == nil {
			return err
		}
		// A cancelled run still carries a valid partial report.
		lg.Warn("scan interrupted, report is partial", "error", err)
	}

	if err := writeScanOutput(report); err != nil {
		lg.Error("failed to write scan output", "error", err)
		return err
	}

	lg.Info("scan completed",
		"files", report.Files,
		"findings", len(report.Findings),
		"scan_errors", report.ScanErrors,
		"logical_requests", finding.LogicalRequestCount(report.Findings))

	if report.Partial || report.ScanErrors > 0 {
		return sharederrors.NewPartialError("scan completed with %d unreadable file(s)", report.ScanErrors)
	}
	return nil
}

func writeScanOutput(report *scanner.Report) error {
	if scanOptions.SarifFile != "" {
		f, err := os.Create(scanOptions.SarifFile)
		if err != nil {
			return fmt.Errorf("cannot create SARIF file: %w", err)
		}
		defer f.Close()
		if err := sarifout.Write(report.Findings, version.Current(), f); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if scanOptions.OutputFile != "" {
		return files.WriteJSONFile(scanOptions.OutputFile, data)
	}
	if scanOptions.SarifFile == "" {
		fmt.Println(string(data))
	}
	return nil
}

func init() {
	ScanCmd.Flags().IntVarP(&scanOptions.Threads, "threads", "j", 0, "Number of concurrent scan workers (default from config).")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputFile, "output", "o", "", "Path for the findings report in JSON (default: stdout).")
	ScanCmd.Flags().StringVar(&scanOptions.SarifFile, "sarif", "", "Path for an additional SARIF 2.1.0 report.")
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
}
