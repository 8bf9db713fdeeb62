// Package settings owns the persisted mover state: the ordered rule list,
// the history cap, and exclude patterns. State is loaded once at startup,
// mutated in memory through the Manager, and flushed back to disk either
// explicitly or through the trailing-debounce saver.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/raido/internal/rules"
)

// DefaultMaxHistorySize bounds the move ledger when the settings file
// does not say otherwise.
const DefaultMaxHistorySize = 50

// Settings is the persisted form.
type Settings struct {
	Rules           []rules.Rule `json:"rules"`
	MaxHistorySize  int          `json:"maxHistorySize"`
	ExcludePatterns []string     `json:"excludePatterns,omitempty"`
}

// Manager guards the in-memory settings and keeps the compiled rule set
// in sync with mutations. All mutating methods schedule a debounced save
// when a saver is attached.
type Manager struct {
	mu       sync.RWMutex
	path     string
	settings Settings
	compiled []rules.Compiled
	issues   []rules.Issue
	version  uint64
	saver    *Debouncer
}

// Load reads the settings file at path, migrating legacy rule fields.
// A missing file yields defaults, not an error.
func Load(path string) (*Manager, error) {
	m := &Manager{
		path: path,
		settings: Settings{
			MaxHistorySize: DefaultMaxHistorySize,
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run.
	case err != nil:
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &m.settings); err != nil {
			return nil, fmt.Errorf("settings: parse %s: %w", path, err)
		}
		if m.settings.MaxHistorySize <= 0 {
			m.settings.MaxHistorySize = DefaultMaxHistorySize
		}
	}

	m.recompile()
	return m, nil
}

// AttachSaver installs a debounced saver used by mutating methods.
func (m *Manager) AttachSaver(d *Debouncer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saver = d
}

// recompile must be called with m.mu held for writing.
func (m *Manager) recompile() {
	rs := make([]rules.Rule, len(m.settings.Rules))
	copy(rs, m.settings.Rules)
	m.compiled, m.issues = rules.CompileAll(rs)
	m.settings.Rules = rs // CompileAll normalizes in place
	m.version++
}

// scheduleSave must be called with m.mu held.
func (m *Manager) scheduleSave() {
	if m.saver != nil {
		m.saver.Trigger()
	}
}

// Rules returns a copy of the ordered rule list.
func (m *Manager) Rules() []rules.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rules.Rule, len(m.settings.Rules))
	copy(out, m.settings.Rules)
	return out
}

// Compiled returns the current compiled rule set.
func (m *Manager) Compiled() []rules.Compiled {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.compiled
}

// Issues returns per-rule compile failures from the last (re)compilation.
func (m *Manager) Issues() []rules.Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.issues
}

// MaxHistory returns the ledger cap.
func (m *Manager) MaxHistory() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.MaxHistorySize
}

// Version increments on every rule or exclude-pattern change. Consumers
// caching per-note results key their cache on it.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// ExcludePatterns returns the configured exclude globs.
func (m *Manager) ExcludePatterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.settings.ExcludePatterns))
	copy(out, m.settings.ExcludePatterns)
	return out
}

// SetMaxHistory updates the ledger cap; values <= 0 restore the default.
func (m *Manager) SetMaxHistory(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 {
		n = DefaultMaxHistorySize
	}
	m.settings.MaxHistorySize = n
	m.scheduleSave()
}

// SetExcludePatterns replaces the exclude glob list.
func (m *Manager) SetExcludePatterns(patterns []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.ExcludePatterns = patterns
	m.version++
	m.scheduleSave()
}

// SetRules replaces the whole rule list.
func (m *Manager) SetRules(rs []rules.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.Rules = rs
	m.recompile()
	m.scheduleSave()
}

// AddRule appends a rule at the end of the ordering.
func (m *Manager) AddRule(r rules.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.Rules = append(m.settings.Rules, r)
	m.recompile()
	m.scheduleSave()
}

// UpdateRule replaces the rule at index i.
func (m *Manager) UpdateRule(i int, r rules.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.settings.Rules) {
		return fmt.Errorf("settings: rule index %d out of range", i)
	}
	m.settings.Rules[i] = r
	m.recompile()
	m.scheduleSave()
	return nil
}

// DeleteRule removes the rule at index i.
func (m *Manager) DeleteRule(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.settings.Rules) {
		return fmt.Errorf("settings: rule index %d out of range", i)
	}
	m.settings.Rules = append(m.settings.Rules[:i], m.settings.Rules[i+1:]...)
	m.recompile()
	m.scheduleSave()
	return nil
}

// Reorder moves the rule at from to position to, shifting the rest.
// Order is semantically significant: first match wins.
func (m *Manager) Reorder(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.settings.Rules)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("settings: reorder %d -> %d out of range", from, to)
	}
	r := m.settings.Rules[from]
	rest := append(m.settings.Rules[:from], m.settings.Rules[from+1:]...)
	m.settings.Rules = append(rest[:to], append([]rules.Rule{r}, rest[to:]...)...)
	m.recompile()
	m.scheduleSave()
	return nil
}

// Duplicate inserts a copy of the rule at index i directly after it.
func (m *Manager) Duplicate(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.settings.Rules) {
		return fmt.Errorf("settings: rule index %d out of range", i)
	}
	r := m.settings.Rules[i]
	m.settings.Rules = append(m.settings.Rules[:i+1],
		append([]rules.Rule{r}, m.settings.Rules[i+1:]...)...)
	m.recompile()
	m.scheduleSave()
	return nil
}

// Save flushes the current settings to disk atomically.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.settings, "", "  ")
	path := m.path
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-tmp-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	success = true
	return nil
}
