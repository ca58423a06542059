package reconcile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/internal/reconcile"
	"github.com/scan-web/cspaudit/internal/scanner"
	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	"github.com/scan-web/cspaudit/pkg/shared/files"
	"github.com/scan-web/cspaudit/pkg/shared/logger"
)

// RunOptionsReconcile holds the arguments for the reconcile command.
type RunOptionsReconcile struct {
	FindingsFile  string
	ResourcesFile string
	OutputFile    string
}

var (
	AppConfig             *config.Config
	reconcileOptions      RunOptionsReconcile
	exampleReconcileUsage = `  # Reconciling a scan report against a crawl of the running site
  cspaudit reconcile --findings findings.json --resources resources.json

  # Writing the reconciliation records to a file
  cspaudit reconcile --findings findings.json --resources resources.json --output reconciliation.json`
)

var ReconcileCmd = &cobra.Command{
	Use:                   "reconcile --findings PATH --resources PATH [--output PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReconcileUsage,
	Short:                 "Reconciles static scan findings against the resources a crawl observed",
	RunE:                  runReconcileCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// summary aggregates reconciliation records for reporting.
type summary struct {
	Matched  int                            `json:"matched"`
	WebOnly  int                            `json:"web_only"`
	CodeOnly int                            `json:"code_only"`
	Records  []finding.ReconciliationRecord `json:"records"`
}

// runReconcileCommand executes the reconcile command.
func runReconcileCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-reconcile")

	if err := validateReconcileArgs(&reconcileOptions, args); err != nil {
		lg.Error("invalid reconcile arguments", "error", err)
		return err
	}

	findings, err := loadFindings(reconcileOptions.FindingsFile)
	if err != nil {
		lg.Error("failed to load findings", "error", err)
		return err
	}

	resources, err := loadResources(reconcileOptions.ResourcesFile)
	if err != nil {
		lg.Error("failed to load resources", "error", err)
		return err
	}

	records := reconcile.Correlate(findings, resources)

	out := summary{Records: records}
	for _, r := range records {
		switch r.Status {
		case finding.StatusMatched:
			out.Matched++
		case finding.StatusWebOnly:
			out.WebOnly++
		case finding.StatusCodeOnly:
			out.CodeOnly++
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if reconcileOptions.OutputFile != "" {
		if err := files.WriteJSONFile(reconcileOptions.OutputFile, data); err != nil {
			lg.Error("failed to write reconciliation output", "error", err)
			return err
		}
	} else {
		fmt.Println(string(data))
	}

	lg.Info("reconcile command completed successfully",
		"matched", out.Matched, "web_only", out.WebOnly, "code_only", out.CodeOnly)
	return nil
}

// loadFindings accepts either a scan report or a bare findings array.
func loadFindings(path string) ([]finding.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read findings file: %w", err)
	}

	var report scanner.Report
	if err := json.Unmarshal(data, &report); err == nil && report.Findings != nil {
		return report.Findings, nil
	}

	var findings []finding.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("findings file is neither a scan report nor a findings array: %w", err)
	}
	return findings, nil
}

func loadResources(path string) ([]finding.RuntimeResource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read resources file: %w", err)
	}
	var resources []finding.RuntimeResource
	if err := json.Unmarshal(data, &resources); err != nil {
		return nil, fmt.Errorf("resources file is not a resource array: %w", err)
	}
	return resources, nil
}

func init() {
	ReconcileCmd.Flags().StringVar(&reconcileOptions.FindingsFile, "findings", "", "Path to a scan report or findings array in JSON.")
	ReconcileCmd.Flags().StringVar(&reconcileOptions.ResourcesFile, "resources", "", "Path to a crawl resource list in JSON.")
	ReconcileCmd.Flags().StringVarP(&reconcileOptions.OutputFile, "output", "o", "", "Path for the reconciliation records in JSON (default: stdout).")
	ReconcileCmd.Flags().BoolP("help", "h", false, "Show help for the reconcile command.")
}
