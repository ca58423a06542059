package fetch

import (
	"fmt"
	"net/url"

	"github.com/scan-web/cspaudit/pkg/shared"
	"github.com/scan-web/cspaudit/pkg/shared/files"
)

const (
	AuthTypeNone     = "none"
	AuthTypeHTTP     = "http"
	AuthTypeSSHKey   = "ssh-key"
	AuthTypeSSHAgent = "ssh-agent"
)

// validateFetchArgs validates the arguments provided to the fetch command.
func validateFetchArgs(options *RunOptionsFetch, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one clone URL argument is required")
	}

	if _, err := url.ParseRequestURI(args[0]); err != nil {
		return fmt.Errorf("provided URL is not valid: %w", err)
	}

	if options.Target == "" {
		return fmt.Errorf("the 'target' flag must be specified")
	}

	authTypesList := []string{AuthTypeNone, AuthTypeHTTP, AuthTypeSSHKey, AuthTypeSSHAgent}
	if !shared.IsInList(options.AuthType, authTypesList) {
		return fmt.Errorf("unknown auth-type: %v", options.AuthType)
	}

	if options.AuthType == AuthTypeSSHKey {
		if options.SSHKey == "" {
			return fmt.Errorf("you must specify ssh-key with auth-type 'ssh-key'")
		}
		expandedPath, err := files.ExpandPath(options.SSHKey)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", options.SSHKey, err)
		}
		if err := files.ValidatePath(expandedPath); err != nil {
			return fmt.Errorf("failed to validate path %q: %w", expandedPath, err)
		}
	}

	if options.AuthType == AuthTypeHTTP && (options.Username == "" || options.Token == "") {
		return fmt.Errorf("auth-type 'http' requires both 'username' and 'token'")
	}

	return nil
}
