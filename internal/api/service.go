package api

import (
	"context"
	"fmt"

	"github.com/starford/raido/internal/ledger"
	"github.com/starford/raido/internal/mover"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/sse"
)

// Service coordinates the mover engine and the settings manager for the
// API layer, and publishes change events to the SSE broker.
type Service struct {
	engine *mover.Engine
	mgr    *settings.Manager
	broker *sse.Broker
}

// NewService creates a new API service. broker may be nil.
func NewService(engine *mover.Engine, mgr *settings.Manager, broker *sse.Broker) *Service {
	return &Service{engine: engine, mgr: mgr, broker: broker}
}

func (s *Service) rulesChanged() {
	if s.broker != nil {
		s.broker.Publish(sse.Event{Type: "rules.updated", Data: map[string]int{
			"count": len(s.mgr.Rules()),
		}})
	}
}

// Rules returns the ordered rule list and any compile issues.
func (s *Service) Rules() ([]rules.Rule, []rules.Issue) {
	return s.mgr.Rules(), s.mgr.Issues()
}

// ReplaceRules validates and installs a whole new rule list.
func (s *Service) ReplaceRules(rs []rules.Rule) error {
	for i := range rs {
		rs[i].Normalize()
		if err := rs[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	s.mgr.SetRules(rs)
	s.rulesChanged()
	return nil
}

// AddRule validates and appends one rule.
func (s *Service) AddRule(r rules.Rule) error {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}
	s.mgr.AddRule(r)
	s.rulesChanged()
	return nil
}

// UpdateRule validates and replaces the rule at index i.
func (s *Service) UpdateRule(i int, r rules.Rule) error {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.mgr.UpdateRule(i, r); err != nil {
		return err
	}
	s.rulesChanged()
	return nil
}

// DeleteRule removes the rule at index i.
func (s *Service) DeleteRule(i int) error {
	if err := s.mgr.DeleteRule(i); err != nil {
		return err
	}
	s.rulesChanged()
	return nil
}

// DuplicateRule copies the rule at index i.
func (s *Service) DuplicateRule(i int) error {
	if err := s.mgr.Duplicate(i); err != nil {
		return err
	}
	s.rulesChanged()
	return nil
}

// ReorderRules moves the rule at from to position to.
func (s *Service) ReorderRules(from, to int) error {
	if err := s.mgr.Reorder(from, to); err != nil {
		return err
	}
	s.rulesChanged()
	return nil
}

// Preview computes where a note would move without touching it.
func (s *Service) Preview(ctx context.Context, path string) mover.Outcome {
	out := s.engine.Preview(ctx, path)
	if s.broker != nil && out.Kind == mover.KindDryRun {
		s.broker.PublishMoveEvent("move.previewed", out)
	}
	return out
}

// Process runs one note through the full pipeline.
func (s *Service) Process(ctx context.Context, path string) mover.Outcome {
	return s.engine.ProcessPath(ctx, path)
}

// Reorganize runs the whole vault through the pipeline.
func (s *Service) Reorganize(ctx context.Context) (mover.Summary, error) {
	return s.engine.ReorganizeAll(ctx)
}

// Undo reverses the most recent recorded move.
func (s *Service) Undo(ctx context.Context) (mover.UndoResult, error) {
	res, err := s.engine.UndoLast(ctx)
	if err != nil {
		return res, err
	}
	if s.broker != nil && res.Status == mover.UndoDone {
		s.broker.PublishMoveEvent("move.undone", res.Entry)
	}
	return res, nil
}

// History returns up to limit ledger entries, most recent first.
func (s *Service) History(limit int) ([]ledger.Entry, error) {
	return s.engine.History(limit)
}

// ClearHistory empties the ledger.
func (s *Service) ClearHistory() error {
	return s.engine.ClearHistory()
}

// Settings returns the non-rule settings.
func (s *Service) Settings() SettingsResponse {
	return SettingsResponse{
		MaxHistorySize:  s.mgr.MaxHistory(),
		ExcludePatterns: s.mgr.ExcludePatterns(),
	}
}

// UpdateSettings applies the non-rule settings.
func (s *Service) UpdateSettings(req SettingsRequest) {
	if req.MaxHistorySize != nil {
		s.mgr.SetMaxHistory(*req.MaxHistorySize)
	}
	if req.ExcludePatterns != nil {
		s.mgr.SetExcludePatterns(req.ExcludePatterns)
	}
}
