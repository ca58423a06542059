package scan

import (
	"fmt"

	"github.com/scan-web/cspaudit/pkg/shared/files"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(options *RunOptionsScan, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one source root argument is required")
	}

	if err := files.ValidateDir(args[0]); err != nil {
		return fmt.Errorf("invalid source root: %w", err)
	}

	if options.Threads < 0 {
		return fmt.Errorf("the 'threads' flag must be a positive integer")
	}

	return nil
}
