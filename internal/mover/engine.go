package mover

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/ledger"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/storage"
)

const maxRenameAttempts = 100

// Engine executes the pipeline against the vault. Moves are serialized
// through a single mutex so a watcher event and a bulk run can never
// race on the same file.
type Engine struct {
	store   storage.Provider
	history *ledger.DB
	mgr     *settings.Manager
	matcher *rules.Matcher
	logger  *slog.Logger
	notify  func(Outcome)

	mu          sync.Mutex
	seen        map[string]string // path -> checksum at last processing
	seenVersion uint64            // settings version the cache was built against
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatchTimeout overrides the regex evaluation timeout.
func WithMatchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.matcher = rules.NewMatcher(d) }
}

// WithNotify installs a callback invoked after every processed note.
// The callback runs with the engine lock held; keep it cheap.
func WithNotify(fn func(Outcome)) Option {
	return func(e *Engine) { e.notify = fn }
}

// New creates an Engine over the given collaborators.
func New(store storage.Provider, history *ledger.DB, mgr *settings.Manager,
	logger *slog.Logger, opts ...Option) *Engine {

	e := &Engine{
		store:       store,
		history:     history,
		mgr:         mgr,
		matcher:     rules.NewMatcher(0),
		logger:      logger,
		seen:        map[string]string{},
		seenVersion: mgr.Version(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessPath runs one note through the full pipeline. Unchanged content
// (same checksum as the last processing) is skipped, which damps watcher
// echo after our own renames.
func (e *Engine) ProcessPath(ctx context.Context, rel string) Outcome {
	return e.process(ctx, rel, false)
}

func (e *Engine) process(_ context.Context, rel string, force bool) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A rule or exclusion change invalidates the cache wholesale: a note
	// skipped as unchanged may match under the new rule set.
	if v := e.mgr.Version(); v != e.seenVersion {
		e.seen = map[string]string{}
		e.seenVersion = v
	}

	file := models.NewNoteFile(rel)

	if e.excluded(rel) {
		return Outcome{Kind: KindExcluded, File: file}
	}

	data, err := e.store.Read(rel)
	if err != nil {
		return failed(file, "", apperr.Classify("read", rel, err))
	}

	sum := checksum.Sum(data)
	if !force && e.seen[rel] == sum {
		return Outcome{Kind: KindUnchanged, File: file}
	}
	e.seen[rel] = sum

	doc, err := parser.Parse(data)
	if err != nil {
		return failed(file, "", fmt.Errorf("mover: parse %s: %w", rel, err))
	}
	out := Resolve(file, doc.Metadata(), e.mgr.Compiled(), e.matcher)

	if out.Kind == KindMoved {
		out = e.execute(out, sum)
	}

	e.logOutcome(out)
	if e.notify != nil {
		e.notify(out)
	}
	return out
}

// Preview resolves a note without touching storage: the computed move is
// reported as a dry run regardless of the rule's debug flag.
func (e *Engine) Preview(_ context.Context, rel string) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	file := models.NewNoteFile(rel)
	if e.excluded(rel) {
		return Outcome{Kind: KindExcluded, File: file}
	}

	data, err := e.store.Read(rel)
	if err != nil {
		return failed(file, "", apperr.Classify("read", rel, err))
	}

	doc, err := parser.Parse(data)
	if err != nil {
		return failed(file, "", fmt.Errorf("mover: parse %s: %w", rel, err))
	}
	out := Resolve(file, doc.Metadata(), e.mgr.Compiled(), e.matcher)
	if out.Kind == KindMoved {
		out.Kind = KindDryRun
	}
	return out
}

// execute performs the planned move: conflict resolution, folder
// creation, rename, ledger record.
func (e *Engine) execute(plan Outcome, sum string) Outcome {
	cr := e.conflictResolution(plan.RuleIndex)

	to := plan.To
	if e.store.Exists(to) {
		switch cr {
		case rules.ConflictSkip:
			plan.Kind = KindSkippedConflict
			return plan
		case rules.ConflictAppendNumber:
			alt, ok := e.numberedAlternative(to)
			if !ok {
				err := &apperr.PathConflictError{Source: plan.File.Path, Dest: to, Reason: apperr.ConflictExists}
				return failed(plan.File, plan.RuleKey, err)
			}
			to = alt
		case rules.ConflictAppendTimestamp:
			alt := timestampedAlternative(to, time.Now())
			if e.store.Exists(alt) {
				err := &apperr.PathConflictError{Source: plan.File.Path, Dest: alt, Reason: apperr.ConflictExists}
				return failed(plan.File, plan.RuleKey, err)
			}
			to = alt
		default:
			err := &apperr.PathConflictError{Source: plan.File.Path, Dest: to, Reason: apperr.ConflictExists}
			return failed(plan.File, plan.RuleKey, err)
		}
	}

	if dir := path.Dir(to); dir != "." {
		if err := e.store.CreateFolder(dir); err != nil {
			return failed(plan.File, plan.RuleKey, apperr.Classify("create folder", dir, err))
		}
	}

	if err := e.store.Rename(plan.File.Path, to); err != nil {
		return failed(plan.File, plan.RuleKey, apperr.Classify("rename", plan.File.Path, err))
	}

	// The content is unchanged; remember it under the new path so the
	// watcher's create event for it is a cheap no-op.
	delete(e.seen, plan.File.Path)
	e.seen[to] = sum

	entry := ledger.Entry{
		Timestamp: time.Now().UTC(),
		FileName:  plan.File.Name,
		FromPath:  plan.File.Path,
		ToPath:    to,
		RuleKey:   plan.RuleKey,
	}
	if err := e.history.Record(entry, e.mgr.MaxHistory()); err != nil {
		e.logger.Warn("move executed but not recorded", "path", to, "error", err)
	}

	plan.To = to
	plan.Kind = KindMoved
	return plan
}

func (e *Engine) conflictResolution(ruleIndex *int) rules.ConflictResolution {
	if ruleIndex == nil {
		return rules.ConflictFail
	}
	for _, c := range e.mgr.Compiled() {
		if c.Index == *ruleIndex {
			if c.Rule.ConflictResolution != "" {
				return c.Rule.ConflictResolution
			}
			break
		}
	}
	return rules.ConflictFail
}

// numberedAlternative finds the first free "name N.ext" variant.
func (e *Engine) numberedAlternative(p string) (string, bool) {
	base, ext := splitExt(p)
	for n := 1; n < maxRenameAttempts; n++ {
		candidate := fmt.Sprintf("%s %d%s", base, n, ext)
		if !e.store.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func timestampedAlternative(p string, now time.Time) string {
	base, ext := splitExt(p)
	return fmt.Sprintf("%s %s%s", base, now.Format("20060102-150405"), ext)
}

func splitExt(p string) (string, string) {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext), ext
}

// Summary aggregates a bulk run.
type Summary struct {
	Processed int       `json:"processed"`
	Moved     int       `json:"moved"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// ReorganizeAll runs every note in the vault through the pipeline, one
// at a time. Strictly sequential: each move completes (or fails) before
// the next note is read, so a run over an inconsistent snapshot cannot
// happen. A failure on one note is contained; the run continues.
func (e *Engine) ReorganizeAll(ctx context.Context) (Summary, error) {
	notes, err := e.store.List("")
	if err != nil {
		return Summary{}, fmt.Errorf("mover: list vault: %w", err)
	}

	var s Summary
	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		out := e.process(ctx, n.Path, true)
		s.Processed++
		s.Outcomes = append(s.Outcomes, out)
		switch out.Kind {
		case KindMoved:
			s.Moved++
		case KindFailed:
			s.Failed++
		case KindNoMatch, KindNoop:
			// Not worth counting as skips.
		default:
			s.Skipped++
		}
	}
	return s, nil
}

// Forget drops the checksum cache entry for a path. Call on delete or
// rename-away events so a later recreation is processed fresh.
func (e *Engine) Forget(rel string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.seen, rel)
}

// UndoStatus classifies the outcome of an undo attempt.
type UndoStatus string

const (
	UndoDone     UndoStatus = "undone"
	UndoNothing  UndoStatus = "nothing-to-undo"
	UndoMissing  UndoStatus = "missing"
	UndoNotAFile UndoStatus = "not-a-file"
	UndoConflict UndoStatus = "conflict"
	UndoFailed   UndoStatus = "failed"
)

// UndoResult reports one undo attempt.
type UndoResult struct {
	Status UndoStatus    `json:"status"`
	Entry  *ledger.Entry `json:"entry,omitempty"`
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// UndoLast reverses the most recent recorded move.
//
// Entry retention is deliberately asymmetric. When the undo is
// impossible forever — the moved file vanished or was replaced by a
// folder — the entry is dropped so repeated attempts do not spin on it.
// When the undo is blocked by something the user can fix — the original
// path is occupied, or the reverse rename failed — the entry is
// retained so the undo can be retried.
func (e *Engine) UndoLast(_ context.Context) (UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.history.Last()
	if err != nil {
		return UndoResult{}, fmt.Errorf("mover: read history: %w", err)
	}
	if entry == nil {
		return UndoResult{Status: UndoNothing}, nil
	}

	res := UndoResult{Entry: entry}

	if !e.store.Exists(entry.ToPath) {
		if err := e.history.Drop(entry.ID); err != nil {
			return UndoResult{}, fmt.Errorf("mover: drop stale entry: %w", err)
		}
		res.Status = UndoMissing
		return res, nil
	}
	if !e.store.IsFile(entry.ToPath) {
		if err := e.history.Drop(entry.ID); err != nil {
			return UndoResult{}, fmt.Errorf("mover: drop stale entry: %w", err)
		}
		res.Status = UndoNotAFile
		return res, nil
	}
	if e.store.Exists(entry.FromPath) {
		res.Status = UndoConflict
		return res, nil
	}

	if dir := path.Dir(entry.FromPath); dir != "." {
		if err := e.store.CreateFolder(dir); err != nil {
			res.Status = UndoFailed
			res.Err = apperr.Classify("create folder", dir, err)
			res.Error = res.Err.Error()
			return res, nil
		}
	}
	if err := e.store.Rename(entry.ToPath, entry.FromPath); err != nil {
		res.Status = UndoFailed
		res.Err = apperr.Classify("rename", entry.ToPath, err)
		res.Error = res.Err.Error()
		return res, nil
	}

	delete(e.seen, entry.ToPath)
	if err := e.history.Drop(entry.ID); err != nil {
		e.logger.Warn("undo executed but entry not dropped", "id", entry.ID, "error", err)
	}
	e.logger.Info("move undone", "from", entry.ToPath, "to", entry.FromPath)

	res.Status = UndoDone
	return res, nil
}

// History returns up to limit ledger entries, most recent first.
func (e *Engine) History(limit int) ([]ledger.Entry, error) {
	return e.history.Entries(limit)
}

// ClearHistory empties the ledger.
func (e *Engine) ClearHistory() error {
	return e.history.Clear()
}

// excluded reports whether rel matches any configured exclude pattern.
// Patterns use path.Match glob syntax against the full relative path and
// the base name; a pattern ending in "/" excludes a whole subtree.
func (e *Engine) excluded(rel string) bool {
	for _, pat := range e.mgr.ExcludePatterns() {
		if dir := strings.TrimSuffix(pat, "/"); dir != pat {
			if rel == dir || strings.HasPrefix(rel, dir+"/") {
				return true
			}
			continue
		}
		if ok, err := path.Match(pat, rel); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pat, path.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}

func (e *Engine) logOutcome(out Outcome) {
	switch out.Kind {
	case KindMoved:
		e.logger.Info("note moved", "from", out.File.Path, "to", out.To, "rule", out.RuleKey)
	case KindDryRun:
		e.logger.Info("move previewed", "path", out.File.Path, "to", out.To, "rule", out.RuleKey)
	case KindFailed:
		e.logger.Error("move failed", "path", out.File.Path, "rule", out.RuleKey, "error", out.Err)
	case KindSkippedConflict, KindSkippedEmptyDestination:
		e.logger.Warn("move skipped", "path", out.File.Path, "reason", out.Kind.String())
	default:
		e.logger.Debug("note processed", "path", out.File.Path, "outcome", out.Kind.String())
	}
}
