package fetch

import (
	"github.com/spf13/cobra"

	"github.com/scan-web/cspaudit/internal/fetchsrc"
	"github.com/scan-web/cspaudit/pkg/shared"
	"github.com/scan-web/cspaudit/pkg/shared/config"
	"github.com/scan-web/cspaudit/pkg/shared/logger"
)

// RunOptionsFetch holds the arguments for the fetch command.
type RunOptionsFetch struct {
	AuthType string
	SSHKey   string
	Username string
	Token    string
	Branch   string
	Target   string
}

var (
	AppConfig         *config.Config
	fetchOptions      RunOptionsFetch
	exampleFetchUsage = `  # Fetching a public source tree before scanning it
  cspaudit fetch --target /srv/checkouts/legacy-portal https://git.example.com/legacy/portal.git

  # Fetching over SSH with an explicit key, pinned to a branch
  cspaudit fetch --auth-type ssh-key --ssh-key ~/.ssh/id_ed25519 -b release/2019 \
    --target /srv/checkouts/legacy-portal ssh://git@git.example.com/legacy/portal.git

  # Fetching over HTTP basic auth
  cspaudit fetch --auth-type http --username auditor --token "$GIT_TOKEN" \
    --target /srv/checkouts/legacy-portal https://git.example.com/legacy/portal.git`
)

var FetchCmd = &cobra.Command{
	Use:                   "fetch --target/-t DIR [--auth-type/-a AUTH_TYPE] [--ssh-key/-k PATH] [-b BRANCH] URL",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleFetchUsage,
	Short:                 "Fetches a remote legacy source tree so it can be audited locally",
	RunE:                  runFetchCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runFetchCommand executes the fetch command.
func runFetchCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	lg := logger.NewLogger(AppConfig, "core-fetch")

	if err := validateFetchArgs(&fetchOptions, args); err != nil {
		lg.Error("invalid fetch arguments", "error", err)
		return err
	}

	req := &fetchsrc.FetchRequest{
		CloneURL:     args[0],
		Branch:       fetchOptions.Branch,
		TargetFolder: fetchOptions.Target,
		AuthType:     fetchOptions.AuthType,
		SSHKey:       fetchOptions.SSHKey,
		Username:     fetchOptions.Username,
		Token:        fetchOptions.Token,
	}

	client, err := fetchsrc.New(lg, AppConfig, req)
	if err != nil {
		lg.Error("failed to initialize fetch client", "error", err)
		return err
	}

	target, err := client.CloneRepository(req)
	if err != nil {
		lg.Error("fetch command failed", "error", err)
		return err
	}

	lg.Info("fetch command completed successfully", "targetFolder", target)
	return nil
}

func init() {
	FetchCmd.Flags().StringVarP(&fetchOptions.Target, "target", "t", "", "Directory to clone the source tree into.")
	FetchCmd.Flags().StringVarP(&fetchOptions.AuthType, "auth-type", "a", "none", "Type of authentication (none, http, ssh-agent, ssh-key).")
	FetchCmd.Flags().StringVarP(&fetchOptions.SSHKey, "ssh-key", "k", "", "Path to an SSH key.")
	FetchCmd.Flags().StringVar(&fetchOptions.Username, "username", "", "Username for HTTP basic authentication.")
	FetchCmd.Flags().StringVar(&fetchOptions.Token, "token", "", "Token or password for HTTP basic authentication.")
	FetchCmd.Flags().StringVarP(&fetchOptions.Branch, "branch", "b", "", "Specific branch to fetch (default: the remote default branch).")
	FetchCmd.Flags().BoolP("help", "h", false, "Show help for the fetch command.")
}
