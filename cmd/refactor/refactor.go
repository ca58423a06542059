package refactor

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/internal/refactor"
	"github.com/scan-web/cspaudit/internal/scanner"
	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	sharederrors "github.com/scan-web/cspaudit/pkg/shared/errors"
	"github.com/scan-web/cspaudit/pkg/shared/logger"
)

// RunOptionsRefactor holds the arguments for the refactor command.
type RunOptionsRefactor struct {
	FindingsFile  string
	Phase         string
	SourceRoot    string
	OutputRoot    string
	Mode          string
	ChangeLogFile string
}

var (
	AppConfig            *config.Config
	refactorOptions      RunOptionsRefactor
	exampleRefactorUsage = `  # Previewing the script block extraction phase without writing anything
  cspaudit refactor --findings findings.json --phase block-extraction \
    --source-root /srv/checkouts/legacy-portal --output-root /srv/refactored/legacy-portal --mode dry-run

  # Applying the attribute tagging phase to a copy of the tree
  cspaudit refactor --findings findings.json --phase attribute-extraction \
    --source-root /srv/checkouts/legacy-portal --output-root /srv/refactored/legacy-portal --mode apply

  # Keeping an audit trail of every decision
  cspaudit refactor --findings findings.json --phase style-extraction \
    --source-root /srv/checkouts/legacy-portal --output-root /srv/refactored/legacy-portal \
    --mode apply --changelog changelog.jsonl`
)

var RefactorCmd = &cobra.Command{
	Use:                   "refactor --findings PATH --phase PHASE --source-root PATH --output-root PATH [--mode dry-run|apply] [--changelog PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRefactorUsage,
	Short:                 "Rewrites a copy of the source tree to externalize eligible inline content",
	RunE:                  runRefactorCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runRefactorCommand executes the refactor command.
func runRefactorCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-refactor")

	if err := validateRefactorArgs(&refactorOptions, args); err != nil {
		lg.Error("invalid refactor arguments", "error", err)
		return err
	}

	findings, err := loadFindings(refactorOptions.FindingsFile)
	if err != nil {
		lg.Error("failed to load findings", "error", err)
		return err
	}

	phase := finding.Phase(refactorOptions.Phase)
	mode := finding.ModeDryRun
	if refactorOptions.Mode == "apply" {
		mode = finding.ModeApply
	}

	plans := refactor.Plan(findings, phase)

	executor := refactor.NewExecutor(AppConfig, lg)
	changeLog, runErr := executor.Apply(cmd.Context(), plans, refactorOptions.SourceRoot, refactorOptions.OutputRoot, mode, phase)
	if runErr != nil {
		if changeLog == nil {
			lg.Error("refactoring run failed", "error", runErr)
			return runErr
		}
		// An interrupted run still carries the entries recorded so far.
		lg.Warn("refactoring run interrupted, changelog is partial", "error", runErr)
	}

	if refactorOptions.ChangeLogFile != "" {
		if err := refactor.WriteChangeLog(refactorOptions.ChangeLogFile, changeLog); err != nil {
			lg.Error("failed to persist changelog", "error", err)
			return err
		}
	} else {
		data, err := json.MarshalIndent(changeLog, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}

	applied := 0
	for _, e := range changeLog.Entries {
		if e.Action != finding.ActionNone && e.Error == "" {
			applied++
		}
	}
	lg.Info("refactor command completed", "mode", mode, "phase", phase,
		"entries", len(changeLog.Entries), "applied", applied)

	if runErr != nil {
		return runErr
	}
	if changeLog.HasErrors() {
		return sharederrors.NewPartialError("refactoring completed with recoverable errors in the changelog")
	}
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

func init() {
	RefactorCmd.Flags().StringVar(&refactorOptions.FindingsFile, "findings", "", "Path to a scan report or findings array in JSON.")
	RefactorCmd.Flags().StringVar(&refactorOptions.Phase, "phase", "", "Transformation phase: attribute-extraction, block-extraction or style-extraction.")
	RefactorCmd.Flags().StringVar(&refactorOptions.SourceRoot, "source-root", "", "Root of the original source tree. Never modified.")
	RefactorCmd.Flags().StringVar(&refactorOptions.OutputRoot, "output-root", "", "Root of the rewritten copy. Must lie outside the source root.")
	RefactorCmd.Flags().StringVar(&refactorOptions.Mode, "mode", "dry-run", "Execution mode: dry-run or apply.")
	RefactorCmd.Flags().StringVar(&refactorOptions.ChangeLogFile, "changelog", "", "Path of the append-only changelog file (default: print to stdout).")
	RefactorCmd.Flags().BoolP("help", "h", false, "Show help for the refactor command.")
}
