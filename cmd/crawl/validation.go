package crawl

import (
	"fmt"
	"net/url"
)

// validateCrawlArgs validates the arguments provided to the crawl command.
func validateCrawlArgs(options *RunOptionsCrawl, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one start URL argument is required")
	}

	u, err := url.Parse(args[0])
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("provided URL is not a valid http(s) URL: %q", args[0])
	}

	if options.MaxPages < 1 {
		return fmt.Errorf("the 'max-pages' flag must be a positive integer")
	}

	return nil
}
