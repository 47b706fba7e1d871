package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/user/termdemo/configs"
	"github.com/user/termdemo/internal/scenario"
)

var scriptIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	ErrInvalidScript  = errors.New("invalid script")
	ErrScriptStorage  = errors.New("script storage error")
	ErrScriptNotFound = errors.New("script not found")
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
)

var extensions = map[string]string{
	".txt":  FormatText,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
}

type Script struct {
	ID        string              `json:"id"`
	Title     string              `json:"title,omitempty"`
	Path      string              `json:"path"`
	Format    string              `json:"format"`
	Scenarios []scenario.Scenario `json:"scenarios"`
}

type Library struct {
	dir     string
	scripts map[string]*Script
	mu      sync.RWMutex
}

// New opens the library in dir, creating it and seeding the example
// scripts when it holds none.
func New(dir string) (*Library, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("scripts dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	if err := ensureDefaults(dir); err != nil {
		return nil, err
	}

	l := &Library{dir: dir, scripts: make(map[string]*Script)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Library) Dir() string { return l.dir }

func (l *Library) Get(id string) *Script {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.scripts[id]
	if !ok {
		return nil
	}
	return clone(s)
}

// List returns every script ordered by ID.
func (l *Library) List() []*Script {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Script, 0, len(l.scripts))
	for _, s := range l.scripts {
		result = append(result, clone(s))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (l *Library) Reload() error {
	loaded, err := loadDir(l.dir)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.scripts = loaded
	l.mu.Unlock()
	return nil
}

// Save stores scenarios as id.txt in canonical form, replacing any script
// with the same ID.
func (l *Library) Save(id string, scenarios []scenario.Scenario) (*Script, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := check(scenarios); err != nil {
		return nil, err
	}
	if err := l.removeFiles(id); err != nil && !errors.Is(err, ErrScriptNotFound) {
		return nil, err
	}

	path := filepath.Join(l.dir, id+".txt")
	if err := os.WriteFile(path, []byte(scenario.Format(scenarios)+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write script %q: %v", ErrScriptStorage, path, err)
	}

	s := &Script{ID: id, Path: path, Format: FormatText, Scenarios: cloneScenarios(scenarios)}
	l.mu.Lock()
	l.scripts[id] = s
	l.mu.Unlock()
	return clone(s), nil
}

func (l *Library) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := l.removeFiles(id); err != nil {
		return err
	}

	l.mu.Lock()
	delete(l.scripts, id)
	l.mu.Unlock()
	return nil
}

func (l *Library) removeFiles(id string) error {
	deleted := false
	for ext := range extensions {
		path := filepath.Join(l.dir, id+ext)
		err := os.Remove(path)
		if err == nil {
			deleted = true
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return fmt.Errorf("%w: delete script %q: %v", ErrScriptStorage, path, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, id)
	}
	return nil
}

// ValidateID reports whether id can name a library script.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidScript)
	}
	if !scriptIDPattern.MatchString(id) {
		return fmt.Errorf("%w: id must be lowercase alphanumeric with hyphens", ErrInvalidScript)
	}
	return nil
}

// IDFromPath derives a script ID from a file name.
func IDFromPath(path string) string {
	base := strings.ToLower(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	dash := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func ensureDefaults(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read scripts dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			return nil
		}
	}

	defaults, err := fs.ReadDir(configs.DefaultScripts, "scripts")
	if err != nil {
		return fmt.Errorf("read embedded defaults: %w", err)
	}
	for _, entry := range defaults {
		content, err := configs.DefaultScripts.ReadFile("scripts/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read embedded default %q: %w", entry.Name(), err)
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write default %q: %w", path, err)
		}
	}
	return nil
}

func loadDir(dir string) (map[string]*Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}

	loaded := make(map[string]*Script)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := loadScript(path, format)
		if err != nil {
			return nil, err
		}
		s.ID = IDFromPath(entry.Name())
		if err := ValidateID(s.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, exists := loaded[s.ID]; exists {
			return nil, fmt.Errorf("duplicate script id %q", s.ID)
		}
		loaded[s.ID] = s
	}
	return loaded, nil
}

// LoadFile reads a script file, choosing the format from its extension.
// Files without a known extension are read as text.
func LoadFile(path string) ([]scenario.Scenario, error) {
	format, ok := extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		format = FormatText
	}
	s, err := loadScript(path, format)
	if err != nil {
		return nil, err
	}
	return s.Scenarios, nil
}

func loadScript(path, format string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s := &Script{Path: path, Format: format}
	if format == FormatYAML {
		s.Title, s.Scenarios, err = DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		s.Scenarios = scenario.Parse(string(data))
	}
	if err := check(s.Scenarios); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func check(scenarios []scenario.Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios found", ErrInvalidScript)
	}
	return scenario.Validate(scenarios)
}

func clone(s *Script) *Script {
	if s == nil {
		return nil
	}
	out := *s
	out.Scenarios = cloneScenarios(s.Scenarios)
	return &out
}

func cloneScenarios(in []scenario.Scenario) []scenario.Scenario {
	out := make([]scenario.Scenario, len(in))
	for i, sc := range in {
		out[i] = sc.Clone()
	}
	return out
}
