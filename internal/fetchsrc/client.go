package fetchsrc

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	crssh "golang.org/x/crypto/ssh"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-web/cspaudit/pkg/shared/config"
	"github.com/scan-web/cspaudit/pkg/shared/files"
)

// FetchRequest describes a remote legacy source tree to bring down for
// auditing.
type FetchRequest struct {
	CloneURL     string
	Branch       string
	TargetFolder string
	AuthType     string
	SSHKey       string
	Username     string
	Token        string
}

// Client clones remote source trees so they can be scanned locally.
type Client struct {
	logger  hclog.Logger
	auth    transport.AuthMethod
	timeout time.Duration
	cfg     *config.Config
}

// Authenticator builds a go-git auth method for one authentication scheme.
type Authenticator interface {
	SetupAuth(req *FetchRequest, logger hclog.Logger) (transport.AuthMethod, error)
	ValidateRequest(req *FetchRequest) error
}

// SSHKeyAuthenticator provides SSH key-based authentication.
type SSHKeyAuthenticator struct {
	KeyPassword string
}

// SSHAgentAuthenticator provides SSH agent-based authentication.
type SSHAgentAuthenticator struct{}

// HTTPAuthenticator provides HTTP basic authentication.
type HTTPAuthenticator struct{}

// NoAuthenticator fetches public repositories without credentials.
type NoAuthenticator struct{}

// SetupAuth configures SSH key authentication.
func (s *SSHKeyAuthenticator) SetupAuth(req *FetchRequest, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH key authentication")

	sshKeyPath, err := files.ExpandPath(req.SSHKey)
	if err != nil {
		return nil, fmt.Errorf("failed to expand SSH key path %q: %w", req.SSHKey, err)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, s.KeyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to set up SSH key authentication: %w", err)
	}

	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(), // TODO: make host key checking configurable
	}
	return auth, nil
}

// ValidateRequest validates the request for SSHKeyAuthenticator.
func (s *SSHKeyAuthenticator) ValidateRequest(req *FetchRequest) error {
	if req.SSHKey == "" {
		return fmt.Errorf("an SSH key path is required for ssh-key authentication")
	}
	return nil
}

// SetupAuth configures SSH agent authentication.
func (s *SSHAgentAuthenticator) SetupAuth(req *FetchRequest, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH agent authentication")

	auth, err := ssh.NewSSHAgentAuth("git")
	if err != nil {
		return nil, fmt.Errorf("failed to set up SSH agent authentication: %w", err)
	}

	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(), // TODO: make host key checking configurable
	}
	return auth, nil
}

// ValidateRequest validates the request for SSHAgentAuthenticator.
func (s *SSHAgentAuthenticator) ValidateRequest(req *FetchRequest) error {
	return nil
}

// SetupAuth configures HTTP basic authentication.
func (h *HTTPAuthenticator) SetupAuth(req *FetchRequest, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up HTTP authentication")

	return &http.BasicAuth{
		Username: req.Username,
		Password: req.Token,
	}, nil
}

// ValidateRequest validates the request for HTTPAuthenticator.
func (h *HTTPAuthenticator) ValidateRequest(req *FetchRequest) error {
	if req.Username == "" {
		return fmt.Errorf("a username is required for http authentication")
	}
	if req.Token == "" {
		return fmt.Errorf("a token is required for http authentication")
	}
	return nil
}

// SetupAuth returns no credentials.
func (n *NoAuthenticator) SetupAuth(req *FetchRequest, logger hclog.Logger) (transport.AuthMethod, error) {
	return nil, nil
}

// ValidateRequest validates the request for NoAuthenticator.
func (n *NoAuthenticator) ValidateRequest(req *FetchRequest) error {
	return nil
}

// getAuthenticator returns the Authenticator for the requested auth type.
func getAuthenticator(authType string) (Authenticator, error) {
	switch authType {
	case "ssh-key":
		return &SSHKeyAuthenticator{}, nil
	case "ssh-agent":
		return &SSHAgentAuthenticator{}, nil
	case "http":
		return &HTTPAuthenticator{}, nil
	case "", "none":
		return &NoAuthenticator{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", authType)
	}
}

// New initializes a Client for the given fetch request.
func New(logger hclog.Logger, cfg *config.Config, req *FetchRequest) (*Client, error) {
	authenticator, err := getAuthenticator(req.AuthType)
	if err != nil {
		return nil, fmt.Errorf("unsupported authentication type: %w", err)
	}

	if err := authenticator.ValidateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid fetch request: %w", err)
	}

	auth, err := authenticator.SetupAuth(req, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up authentication: %w", err)
	}

	timeout := cfg.GitClient.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Client{
		logger:  logger,
		auth:    auth,
		timeout: timeout,
		cfg:     cfg,
	}, nil
}
