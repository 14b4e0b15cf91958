// Package github wraps the gh and git command-line tools.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/shell"
)

// DefaultIssueLimit caps how many open issues a sync fetches
const DefaultIssueLimit = 100

// Client runs gh and git against one repository
type Client struct {
	runner  shell.Runner
	repo    string
	workDir string
}

// New creates a Client. repo is "owner/name" and may be empty to let gh
// infer it from workDir.
func New(runner shell.Runner, repo, workDir string) *Client {
	if runner == nil {
		runner = shell.ExecRunner{}
	}
	return &Client{runner: runner, repo: repo, workDir: workDir}
}

type ghIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

func parseIssues(data []byte) ([]domain.GitHubIssue, error) {
	var raw []ghIssue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse gh output: %w", err)
	}

	issues := make([]domain.GitHubIssue, 0, len(raw))
	for _, gh := range raw {
		labels := make([]string, len(gh.Labels))
		for i, l := range gh.Labels {
			labels[i] = l.Name
		}
		issues = append(issues, domain.GitHubIssue{
			Number: gh.Number,
			Title:  gh.Title,
			Body:   gh.Body,
			URL:    gh.URL,
			Labels: labels,
		})
	}
	return issues, nil
}

// ListIssues returns open issues, newest first as gh reports them
func (c *Client) ListIssues(ctx context.Context, limit int) ([]domain.GitHubIssue, error) {
	if limit <= 0 {
		limit = DefaultIssueLimit
	}
	args := []string{"issue", "list",
		"--state", "open",
		"--json", "number,title,body,labels,url",
		"--limit", strconv.Itoa(limit)}
	args = c.withRepo(args)

	res, err := c.runner.Run(ctx, c.workDir, "gh", args...)
	if err != nil {
		return nil, fmt.Errorf("gh issue list: %w", err)
	}
	return parseIssues([]byte(res.Stdout))
}

// CreateBranch creates and checks out a new branch
func (c *Client) CreateBranch(ctx context.Context, branch string) error {
	if _, err := c.runner.Run(ctx, c.workDir, "git", "checkout", "-b", branch); err != nil {
		return fmt.Errorf("git checkout -b %s: %w", branch, err)
	}
	return nil
}

// CreatePR opens a pull request and returns its URL. An empty branch uses
// the current one.
func (c *Client) CreatePR(ctx context.Context, title, body, branch string) (string, error) {
	args := []string{"pr", "create", "--title", title, "--body", body}
	if branch != "" {
		args = append(args, "--head", branch)
	}
	args = c.withRepo(args)

	res, err := c.runner.Run(ctx, c.workDir, "gh", args...)
	if err != nil {
		return "", fmt.Errorf("gh pr create: %w", err)
	}
	return lastLine(res.Stdout), nil
}

func (c *Client) withRepo(args []string) []string {
	if c.repo != "" {
		args = append(args, "--repo", c.repo)
	}
	return args
}

// lastLine picks the PR URL gh prints after any progress output
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
