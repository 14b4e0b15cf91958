package prompts

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"text/template"
)

// TodoTemplate is the template used to turn a todo into a model prompt
const TodoTemplate = "todo.md"

// Loader manages prompt templates with override support.
type Loader struct {
	overrideDirs []string // checked in order, first match wins
	cache        map[string]*template.Template
	mu           sync.RWMutex
}

// NewLoader creates a loader with the given override directories.
func NewLoader(overrideDirs ...string) *Loader {
	return &Loader{
		overrideDirs: overrideDirs,
		cache:        make(map[string]*template.Template),
	}
}

// DefaultLoader creates a loader with the standard override paths:
// 1. Project-local: <projectRoot>/2DO/prompts/
// 2. User: ~/.2do/prompts/
func DefaultLoader(projectRoot string) *Loader {
	var dirs []string
	if projectRoot != "" {
		dirs = append(dirs, filepath.Join(projectRoot, "2DO", "prompts"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".2do", "prompts"))
	}
	return NewLoader(dirs...)
}

// loadContent reads a template from the first override dir that has it,
// falling back to the embedded copy
func (l *Loader) loadContent(name string) ([]byte, error) {
	for _, dir := range l.overrideDirs {
		if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			return data, nil
		}
	}
	return fs.ReadFile(embeddedFS, path.Join("templates", name))
}

// LoadTemplate loads and parses a template by name (e.g. "todo.md").
func (l *Loader) LoadTemplate(name string) (*template.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	content, err := l.loadContent(name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	tmpl, err = template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("compile template %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

// Execute loads and executes a template with the given data.
func (l *Loader) Execute(name string, data any) (string, error) {
	tmpl, err := l.LoadTemplate(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// ClearCache drops parsed templates so overrides are re-read.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*template.Template)
	l.mu.Unlock()
}

// TodoData holds template variables for todo prompts. Note, Instructions
// and Closing are pre-rendered by the caller.
type TodoData struct {
	Title        string
	Description  string
	Note         string
	Instructions string
	Content      string
	Priority     string
	Closing      string
}

// BuildTodoPrompt executes the todo template.
func (l *Loader) BuildTodoPrompt(data TodoData) (string, error) {
	return l.Execute(TodoTemplate, data)
}

var (
	embeddedLoader     *Loader
	embeddedLoaderOnce sync.Once
)

// Embedded returns a shared loader without override directories.
func Embedded() *Loader {
	embeddedLoaderOnce.Do(func() {
		embeddedLoader = NewLoader()
	})
	return embeddedLoader
}
