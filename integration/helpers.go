//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleNotes = `---
type: code
priority: high
---
# Backend

## API
- [ ] Add pagination to the list endpoint
- [x] Return 404 for unknown ids
* TODO: Document the error format

## Storage
+ [ ] Add an index on created_at
`

const sampleIdeas = `# Ideas

- [ ] Write a blog post about the release
- [ ] Collect feedback from the beta users
`

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// TempConfigPath creates a temporary config file path for testing
func TempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.toml")
}

// WriteNotes writes the sample markdown files into a fresh directory
func WriteNotes(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "notes")
	files := map[string]string{
		"backend.md":          sampleNotes,
		"misc/ideas.markdown": sampleIdeas,
		"misc/readme.txt":     "- [ ] not markdown",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}
