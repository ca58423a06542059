package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/pkg/shared/config"
)

var (
	AppConfig   *config.Config
	CoreVersion = "unknown"
	BuildTime   = "unknown"
)

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// Current returns the core version string for embedding in reports.
func Current() string {
	return CoreVersion
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Core version: %s\n", CoreVersion)
			fmt.Printf("Golang version: %s\n", runtime.Version())
			fmt.Printf("Build time: %s\n", BuildTime)
		},
	}
}
