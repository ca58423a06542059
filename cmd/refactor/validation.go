package refactor

import (
	"fmt"

	"github.com/scan-web/cspaudit/pkg/finding"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	"github.com/scan-web/cspaudit/pkg/shared/files"
)

// validateRefactorArgs validates the arguments provided to the refactor command.
func validateRefactorArgs(options *RunOptionsRefactor, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("the refactor command takes no positional arguments")
	}

	if options.FindingsFile == "" {
		return fmt.Errorf("the 'findings' flag must be specified")
	}
	if err := config.ValidateConfigPath(options.FindingsFile); err != nil {
		return fmt.Errorf("invalid findings file: %w", err)
	}

	if options.Phase == "" {
		return fmt.Errorf("the 'phase' flag must be specified")
	}
	if !validPhase(options.Phase) {
		return fmt.Errorf("unknown phase %q, expected one of: %v", options.Phase, finding.Phases())
	}

	if options.SourceRoot == "" {
		return fmt.Errorf("the 'source-root' flag must be specified")
	}
	if err := files.ValidateDir(options.SourceRoot); err != nil {
		return fmt.Errorf("invalid source root: %w", err)
	}

	if options.OutputRoot == "" {
		return fmt.Errorf("the 'output-root' flag must be specified")
	}

	if options.Mode != "dry-run" && options.Mode != "apply" {
		return fmt.Errorf("unknown mode %q, expected 'dry-run' or 'apply'", options.Mode)
	}

	return nil
}

func validPhase(phase string) bool {
	for _, p := range finding.Phases() {
		if finding.Phase(phase) == p {
			return true
		}
	}
	return false
}
