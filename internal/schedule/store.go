package schedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned for an unknown schedule name
	ErrNotFound = errors.New("schedule not found")
	// ErrNameTaken is returned when a different schedule already owns the
	// file a name maps to
	ErrNameTaken = errors.New("schedule name collides with an existing schedule")
)

const fileExt = ".yaml"

// FileStore keeps one YAML file per schedule in a directory
type FileStore struct {
	dir string
}

// NewFileStore opens dir, creating it if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating schedules dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding schedule files
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Path returns the file a schedule is stored in
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dir, Slug(name)+fileExt)
}

// Save writes a schedule atomically
func (fs *FileStore) Save(s Schedule) error {
	if Slug(s.Name) == "" {
		return ErrNameRequired
	}
	if owner, ok := fs.owner(s.Name); ok && owner != s.Name {
		return fmt.Errorf("%w: %q is stored as %q", ErrNameTaken, s.Name, owner)
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encoding schedule %q: %w", s.Name, err)
	}

	tmp, err := os.CreateTemp(fs.dir, ".schedule-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.Path(s.Name))
}

// Load reads one schedule by name
func (fs *FileStore) Load(name string) (Schedule, error) {
	s, err := ReadFile(fs.Path(name))
	if errors.Is(err, os.ErrNotExist) || (err == nil && s.Name != name) {
		return Schedule{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, err
}

// LoadAll reads every schedule file. Files that fail to parse are reported
// in the joined error while the rest are still returned.
func (fs *FileStore) LoadAll() ([]Schedule, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Schedule
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !IsScheduleFile(e.Name()) {
			continue
		}
		s, err := ReadFile(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, errors.Join(errs...)
}

// Delete removes a schedule file
func (fs *FileStore) Delete(name string) error {
	if owner, ok := fs.owner(name); ok && owner != name {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	err := os.Remove(fs.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// owner returns the name stored in the file name maps to. Unreadable files
// have no owner.
func (fs *FileStore) owner(name string) (string, bool) {
	s, err := ReadFile(fs.Path(name))
	if err != nil {
		return "", false
	}
	return s.Name, true
}

// IsScheduleFile reports whether a file name looks like a schedule file
func IsScheduleFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".yaml" || ext == ".yml"
}

// ReadFile parses one schedule file. A missing name defaults to the file stem.
func ReadFile(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, err
	}
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schedule{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}
