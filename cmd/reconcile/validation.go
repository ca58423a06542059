package reconcile

import (
	"fmt"

	"github.com/scan-web/cspaudit/pkg/shared/config"
)

// validateReconcileArgs validates the arguments provided to the reconcile command.
func validateReconcileArgs(options *RunOptionsReconcile, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("the reconcile command takes no positional arguments")
	}

	if options.FindingsFile == "" {
		return fmt.Errorf("the 'findings' flag must be specified")
	}
	if err := config.ValidateConfigPath(options.FindingsFile); err != nil {
		return fmt.Errorf("invalid findings file: %w", err)
	}

	if options.ResourcesFile == "" {
		return fmt.Errorf("the 'resources' flag must be specified")
	}
	if err := config.ValidateConfigPath(options.ResourcesFile); err != nil {
		return fmt.Errorf("invalid resources file: %w", err)
	}

	return nil
}
