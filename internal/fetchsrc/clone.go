package fetchsrc

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	log "github.com/scan-web/cspaudit/pkg/shared/logger"
)

// CloneRepository brings the requested source tree down into the target
// folder. An existing clone is reused and updated instead of failing, so a
// re-audit of the same tree never has to start from scratch.
func (c *Client) CloneRepository(req *FetchRequest) (string, error) {
	targetFolder := req.TargetFolder
	output := log.GetLoggerOutput(c.logger)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	depth := c.cfg.GitClient.Depth
	if depth <= 0 {
		depth = 1
	}

	cloneOptions := &git.CloneOptions{
		Auth:            c.auth,
		URL:             req.CloneURL,
		Progress:        output,
		Depth:           depth,
		SingleBranch:    true,
		InsecureSkipTLS: c.cfg.GitClient.InsecureTLS,
	}
	if req.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(req.Branch)
	}

	c.logger.Debug("starting source fetch", "cloneURL", req.CloneURL, "branch", req.Branch, "targetFolder", targetFolder)
	repo, err := git.PlainCloneContext(ctx, targetFolder, false, cloneOptions)
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return "", fmt.Errorf("error occurred during clone: %w", err)
		}

		c.logger.Info("source tree already present, updating", "targetFolder", targetFolder)
		repo, err = git.PlainOpen(targetFolder)
		if err != nil {
			return "", fmt.Errorf("cannot open existing clone: %w", err)
		}
		if err := c.pullLatestChanges(ctx, repo, req.Branch); err != nil {
			return "", err
		}
	}

	if req.Branch != "" {
		if err := checkoutBranch(repo, req.Branch); err != nil {
			return "", err
		}
	}

	c.logger.Info("source fetch completed", "cloneURL", req.CloneURL, "targetFolder", targetFolder)
	return targetFolder, nil
}

func (c *Client) pullLatestChanges(ctx context.Context, repo *git.Repository, branch string) error {
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("error accessing worktree: %w", err)
	}

	pullOptions := &git.PullOptions{
		Auth:            c.auth,
		Progress:        log.GetLoggerOutput(c.logger),
		Force:           true,
		InsecureSkipTLS: c.cfg.GitClient.InsecureTLS,
	}
	if branch != "" {
		pullOptions.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	c.logger.Debug("pulling latest changes", "branch", branch)
	if err := w.PullContext(ctx, pullOptions); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("error occurred during pull: %w", err)
	}
	return nil
}

func checkoutBranch(repo *git.Repository, branch string) error {
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("error accessing worktree: %w", err)
	}
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	}); err != nil {
		return fmt.Errorf("error occurred during checkout: %w", err)
	}
	return nil
}
