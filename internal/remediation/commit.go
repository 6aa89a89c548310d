package remediation

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
)

// CommitGuard verifies fixes were committed before the next validation
// attempt. Gates read only committed state, so uncommitted remediation is
// invisible to the validator and the attempt would be wasted.
type CommitGuard struct {
	dir string
}

// NewCommitGuard creates a guard for the repository containing dir.
func NewCommitGuard(dir string) *CommitGuard {
	return &CommitGuard{dir: dir}
}

// Verify returns an error naming the dirty files if the worktree has
// uncommitted changes. A directory outside any git repository verifies clean:
// the commit discipline only applies to version-controlled workspaces.
func (cg *CommitGuard) Verify() error {
	repo, err := git.PlainOpenWithOptions(cg.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		// Not a git repository: nothing to enforce.
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("reading worktree status: %w", err)
	}

	if status.IsClean() {
		return nil
	}

	var dirty []string
	for file, st := range status {
		if st.Worktree != git.Unmodified || st.Staging != git.Unmodified {
			dirty = append(dirty, file)
		}
	}
	return fmt.Errorf("worktree has uncommitted changes: %s", strings.Join(dirty, ", "))
}
