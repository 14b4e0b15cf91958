// Package markdown extracts checklist tasks from markdown files.
package markdown

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hochfrequenz/twodo/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	openPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*[-*+]\s*\[\s*\]\s*(.+)$`),
		regexp.MustCompile(`(?i)^\s*[-*]\s*TODO:\s*(.+)$`),
	}
	donePattern = regexp.MustCompile(`(?i)^\s*[-*+]\s*\[x\]\s*(.+)$`)
)

// Frontmatter holds per-file defaults for imported todos
type Frontmatter struct {
	Type     string `yaml:"type"`
	Priority string `yaml:"priority"`
}

// Task is one checklist item found in a file
type Task struct {
	Title     string
	Section   string
	Line      int
	Source    string
	Original  string
	Completed bool
}

// Document is a parsed markdown file
type Document struct {
	Frontmatter Frontmatter
	Tasks       []Task
}

// ParseFrontmatter splits leading YAML frontmatter from the body
func ParseFrontmatter(content []byte) (Frontmatter, []byte, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return Frontmatter{}, content, nil
	}

	rest := content[4:]
	endIdx := bytes.Index(rest, []byte("\n---"))
	if endIdx == -1 {
		return Frontmatter{}, content, nil
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:endIdx], &fm); err != nil {
		return Frontmatter{}, nil, fmt.Errorf("frontmatter: %w", err)
	}
	return fm, bytes.TrimLeft(rest[endIdx+4:], "\n"), nil
}

// Parse extracts tasks from markdown content. source is recorded on each
// task.
func Parse(content []byte, source string) (Document, error) {
	fm, body, err := ParseFrontmatter(content)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Frontmatter: fm}

	// Line numbers refer to the original file, frontmatter included.
	offset := bytes.Count(content[:len(content)-len(body)], []byte("\n"))

	var sections []string
	for i, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			if level <= len(sections) {
				sections = sections[:level-1]
			}
			sections = append(sections, strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
			continue
		}

		title, done := extract(line)
		if title == "" {
			continue
		}
		doc.Tasks = append(doc.Tasks, Task{
			Title:     title,
			Section:   strings.Join(sections, " > "),
			Line:      offset + i + 1,
			Source:    source,
			Original:  trimmed,
			Completed: done,
		})
	}
	return doc, nil
}

func extract(line string) (string, bool) {
	if m := donePattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	for _, p := range openPatterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), false
		}
	}
	return "", false
}

// IsMarkdown reports whether a path has a markdown extension
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// ParseFile reads and parses one markdown file
func ParseFile(path string) (Document, error) {
	if !IsMarkdown(path) {
		return Document{}, fmt.Errorf("%s is not a markdown file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Parse(data, path)
}

// ParseDir parses every markdown file under dir, skipping hidden paths and
// node_modules
func ParseDir(dir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsMarkdown(path) {
			return nil
		}
		doc, err := ParseFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	return docs, err
}

// Todos converts the open tasks of a document into todos, applying the
// frontmatter defaults and then the fallbacks
func (d Document) Todos(fallbackType domain.TodoType, fallbackPriority domain.Priority) ([]*domain.Todo, error) {
	typ, prio := fallbackType, fallbackPriority
	if d.Frontmatter.Type != "" {
		t, err := domain.ParseType(d.Frontmatter.Type)
		if err != nil {
			return nil, err
		}
		typ = t
	}
	if d.Frontmatter.Priority != "" {
		p, err := domain.ParsePriority(d.Frontmatter.Priority)
		if err != nil {
			return nil, err
		}
		prio = p
	}

	var todos []*domain.Todo
	for _, t := range d.Tasks {
		if t.Completed {
			continue
		}
		desc := "From " + filepath.Base(t.Source)
		if t.Section != "" {
			desc = fmt.Sprintf("From %s in %s", t.Section, filepath.Base(t.Source))
		}
		content := fmt.Sprintf("Source: %s:%d\nOriginal: %s", t.Source, t.Line, t.Original)
		todos = append(todos, domain.NewTodo(t.Title, desc, typ, prio, content))
	}
	return todos, nil
}

// Summary counts tasks across documents
type Summary struct {
	Total     int
	Pending   int
	Completed int
	Files     int
}

// Summarize counts tasks across documents
func Summarize(docs []Document) Summary {
	var s Summary
	for _, d := range docs {
		if len(d.Tasks) > 0 {
			s.Files++
		}
		for _, t := range d.Tasks {
			s.Total++
			if t.Completed {
				s.Completed++
			} else {
				s.Pending++
			}
		}
	}
	return s
}
