package github

import (
	"context"
	"errors"
	"testing"

	"github.com/hochfrequenz/twodo/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (shell.Result, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	return shell.Result{Command: name, Args: args, Stdout: f.stdout}, f.err
}

func TestParseIssues(t *testing.T) {
	out := `[{
		"number": 42,
		"title": "Add retry logic",
		"body": "We need retry logic for API calls",
		"url": "https://github.com/o/r/issues/42",
		"labels": [{"name": "bug"}, {"name": "priority:high"}]
	}]`

	issues, err := parseIssues([]byte(out))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 42, issues[0].Number)
	assert.Equal(t, "Add retry logic", issues[0].Title)
	assert.Equal(t, []string{"bug", "priority:high"}, issues[0].Labels)
	assert.Equal(t, "GitHub Issue #42: Add retry logic", issues[0].TodoTitle())

	_, err = parseIssues([]byte("not json"))
	assert.Error(t, err)
}

func TestListIssues(t *testing.T) {
	r := &fakeRunner{stdout: `[{"number": 1, "title": "a"}, {"number": 2, "title": "b"}]`}
	c := New(r, "owner/repo", "/work")

	issues, err := c.ListIssues(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "gh", r.calls[0].name)
	assert.Equal(t, "/work", r.calls[0].dir)
	assert.Equal(t, []string{"issue", "list", "--state", "open", "--json", "number,title,body,labels,url",
		"--limit", "100", "--repo", "owner/repo"}, r.calls[0].args)
}

func TestListIssues_Error(t *testing.T) {
	c := New(&fakeRunner{err: errors.New("gh: not logged in")}, "", "")
	_, err := c.ListIssues(context.Background(), 5)
	assert.ErrorContains(t, err, "not logged in")
}

func TestCreateBranch(t *testing.T) {
	r := &fakeRunner{}
	require.NoError(t, New(r, "", "/work").CreateBranch(context.Background(), "issue-7"))
	assert.Equal(t, call{dir: "/work", name: "git", args: []string{"checkout", "-b", "issue-7"}}, r.calls[0])
}

func TestCreatePR(t *testing.T) {
	r := &fakeRunner{stdout: "Creating pull request...\nhttps://github.com/o/r/pull/9\n"}
	url, err := New(r, "", "").CreatePR(context.Background(), "Fix", "Body", "issue-7")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/o/r/pull/9", url)
	assert.Equal(t, []string{"pr", "create", "--title", "Fix", "--body", "Body", "--head", "issue-7"}, r.calls[0].args)
}
