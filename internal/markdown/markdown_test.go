package markdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `---
type: code
priority: high
---
# Release
- [ ] Bump version
* [x] Write changelog
## Docs
+ [ ] Update README
- TODO: Tweet about it
Some prose with [ ] brackets.
# Later
- [X] Done already
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample), "plan.md")
	require.NoError(t, err)

	assert.Equal(t, "code", doc.Frontmatter.Type)
	assert.Equal(t, "high", doc.Frontmatter.Priority)

	require.Len(t, doc.Tasks, 5)
	tests := []struct {
		title     string
		section   string
		line      int
		completed bool
	}{
		{"Bump version", "Release", 6, false},
		{"Write changelog", "Release", 7, true},
		{"Update README", "Release > Docs", 9, false},
		{"Tweet about it", "Release > Docs", 10, false},
		{"Done already", "Later", 13, true},
	}
	for i, tt := range tests {
		got := doc.Tasks[i]
		assert.Equal(t, tt.title, got.Title)
		assert.Equal(t, tt.section, got.Section, tt.title)
		assert.Equal(t, tt.line, got.Line, tt.title)
		assert.Equal(t, tt.completed, got.Completed, tt.title)
		assert.Equal(t, "plan.md", got.Source)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	doc, err := Parse([]byte("- [ ] one\n"), "x.md")
	require.NoError(t, err)
	assert.Empty(t, doc.Frontmatter.Type)
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, 1, doc.Tasks[0].Line)
	assert.Empty(t, doc.Tasks[0].Section)
}

func TestParse_BadFrontmatter(t *testing.T) {
	_, err := Parse([]byte("---\ntype: [oops\n---\n- [ ] a\n"), "x.md")
	assert.Error(t, err)
}

func TestDocumentTodos(t *testing.T) {
	doc, err := Parse([]byte(sample), "/notes/plan.md")
	require.NoError(t, err)

	todos, err := doc.Todos(domain.TypeText, domain.PriorityMedium)
	require.NoError(t, err)
	require.Len(t, todos, 3)

	first := todos[0]
	assert.Equal(t, "Bump version", first.Title)
	assert.Equal(t, domain.TypeCode, first.Type)
	assert.Equal(t, domain.PriorityHigh, first.Priority)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, "From Release in plan.md", first.Description)
	assert.Equal(t, "Source: /notes/plan.md:6\nOriginal: - [ ] Bump version", first.Content)
}

func TestDocumentTodos_Fallbacks(t *testing.T) {
	doc, err := Parse([]byte("- [ ] plain\n"), "a.md")
	require.NoError(t, err)

	todos, err := doc.Todos(domain.TypeText, domain.PriorityLow)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, domain.TypeText, todos[0].Type)
	assert.Equal(t, domain.PriorityLow, todos[0].Priority)
	assert.Equal(t, "From a.md", todos[0].Description)

	doc.Frontmatter.Priority = "urgent"
	_, err = doc.Todos(domain.TypeText, domain.PriorityLow)
	assert.Error(t, err)
}

func TestParseFileAndDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("- [ ] a1\n- [x] a2\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.markdown"), []byte("* [ ] b1\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "c.md"), []byte("- [ ] hidden\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("- [ ] not markdown\n"), 0o644))

	_, err := ParseFile(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)

	docs, err := ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	sum := Summarize(docs)
	assert.Equal(t, Summary{Total: 3, Pending: 2, Completed: 1, Files: 2}, sum)
}
