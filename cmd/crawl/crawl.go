package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/internal/crawler"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	"github.com/scan-web/cspaudit/pkg/shared/files"
	"github.com/scan-web/cspaudit/pkg/shared/httpclient"
	"github.com/scan-web/cspaudit/pkg/shared/logger"
)

// RunOptionsCrawl holds the arguments for the crawl command.
type RunOptionsCrawl struct {
	MaxPages   int
	OutputFile string
}

var (
	AppConfig         *config.Config
	crawlOptions      RunOptionsCrawl
	exampleCrawlUsage = `  # Crawling a staging deployment, following same-origin links
  cspaudit crawl https://staging.example.com/

  # Bounding the crawl and writing the collected resources to a file
  cspaudit crawl --max-pages 200 --output resources.json https://staging.example.com/`
)

var CrawlCmd = &cobra.Command{
	Use:                   "crawl [--max-pages N] [--output PATH] START_URL",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleCrawlUsage,
	Short:                 "Collects the script and stylesheet resources a running deployment references",
	RunE:                  runCrawlCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runCrawlCommand executes the crawl command.
func runCrawlCommand(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "core-crawl")

	if err := validateCrawlArgs(&crawlOptions, args); err != nil {
		lg.Error("invalid crawl arguments", "error", err)
		return err
	}

	client := httpclient.InitializeRestyClient(lg, AppConfig)
	collector := crawler.NewCollector(client, lg)

	resources, runErr := collector.Collect(cmd.Context(), args[0], crawlOptions.MaxPages)
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
			lg.Error("crawl failed", "error", runErr)
			return runErr
		}
		// An interrupted crawl still carries the resources collected so far.
		lg.Warn("crawl interrupted, resource list is partial", "error", runErr)
	}

	data, err := json.MarshalIndent(resources, "", "  ")
	if err != nil {
		return err
	}
	if crawlOptions.OutputFile != "" {
		if err := files.WriteJSONFile(crawlOptions.OutputFile, data); err != nil {
			lg.Error("failed to write crawl output", "error", err)
			return err
		}
	} else {
		fmt.Println(string(data))
	}

	if runErr != nil {
		return runErr
	}
	lg.Info("crawl command completed successfully", "resources", len(resources))
	return nil
}

func init() {
	CrawlCmd.Flags().IntVar(&crawlOptions.MaxPages, "max-pages", 100, "Maximum number of pages to fetch.")
	CrawlCmd.Flags().StringVarP(&crawlOptions.OutputFile, "output", "o", "", "Path for the resource list in JSON (default: stdout).")
	CrawlCmd.Flags().BoolP("help", "h", false, "Show help for the crawl command.")
}
