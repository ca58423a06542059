package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/cmd/crawl"
	"github.com/scan-web/cspaudit/cmd/fetch"
	"github.com/scan-web/cspaudit/cmd/reconcile"
	"github.com/scan-web/cspaudit/cmd/refactor"
	"github.com/scan-web/cspaudit/cmd/scan"
	"github.com/scan-web/cspaudit/cmd/version"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	sharederrors "github.com/scan-web/cspaudit/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "cspaudit [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Cspaudit audits legacy web source trees for content-security-policy blockers.",
		Long: `Cspaudit scans legacy server-rendered web applications for inline scripts,
inline styles and event handler attributes that a strict content security
policy would block, reconciles the static findings against a crawl of the
running site, and rewrites a copy of the source tree to externalize what can
be moved safely.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml if present)")
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(crawl.CrawlCmd)
	rootCmd.AddCommand(reconcile.ReconcileCmd)
	rootCmd.AddCommand(refactor.RefactorCmd)
	rootCmd.AddCommand(fetch.FetchCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and maps the outcome onto the process exit
// code: 0 for success, 1 for a fatal error, 2 for a run that completed with
// recoverable errors recorded in its output.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		var partial *sharederrors.PartialError
		if errors.As(err, &partial) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		if _, statErr := os.Stat("config.yml"); statErr == nil {
			cfgFile = "config.yml"
		}
	}

	if cfgFile == "" {
		AppConfig = config.Default()
	} else {
		AppConfig, err = config.NewConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot load config file %q: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}

	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	scan.Init(AppConfig)
	crawl.Init(AppConfig)
	reconcile.Init(AppConfig)
	refactor.Init(AppConfig)
	fetch.Init(AppConfig)
	version.Init(AppConfig)
}
