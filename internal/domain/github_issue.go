package domain

import "fmt"

// GitHubIssue is an open issue fetched from the repository
type GitHubIssue struct {
	Number int
	Title  string
	Body   string
	Labels []string
	URL    string
}

// TodoTitle returns the title used for the todo created from this issue
func (i *GitHubIssue) TodoTitle() string {
	return fmt.Sprintf("GitHub Issue #%d: %s", i.Number, i.Title)
}

// BranchName returns the branch name for work on this issue
func BranchName(prefix string, issueNumber int) string {
	if prefix == "" {
		prefix = "issue"
	}
	return fmt.Sprintf("%s-%d", prefix, issueNumber)
}
