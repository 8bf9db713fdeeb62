package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/ledger"
	"github.com/starford/raido/internal/rules"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ruleIndex extracts the {index} URL parameter.
func ruleIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ListRules handles GET /api/rules.
//
//	@Summary		List rules in evaluation order, with compile issues
//	@Tags			rules
//	@Produce		json
//	@Success		200	{object}	RuleListResponse
//	@Security		BearerAuth
//	@Router			/rules [get]
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rs, issues := h.svc.Rules()
	writeJSON(w, http.StatusOK, RuleListResponse{
		Rules:  rs,
		Issues: issueDTOs(issues),
	})
}

// ReplaceRules handles PUT /api/rules.
//
//	@Summary		Replace the whole rule list
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]rules.Rule	true	"New rule list in evaluation order"
//	@Success		200		{object}	RuleListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules [put]
func (h *Handler) ReplaceRules(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var rs []rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.ReplaceRules(rs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.ListRules(w, r)
}

// AddRule handles POST /api/rules.
//
//	@Summary		Append a rule at the end of the ordering
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			body	body		rules.Rule	true	"Rule to add"
//	@Success		201		{object}	RuleListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules [post]
func (h *Handler) AddRule(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.AddRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rs, issues := h.svc.Rules()
	writeJSON(w, http.StatusCreated, RuleListResponse{Rules: rs, Issues: issueDTOs(issues)})
}

// UpdateRule handles PUT /api/rules/{index}.
//
//	@Summary		Replace the rule at an index
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			index	path		int			true	"Rule index"
//	@Param			body	body		rules.Rule	true	"Updated rule"
//	@Success		200		{object}	RuleListResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules/{index} [put]
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	i, ok := ruleIndex(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid rule index"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.UpdateRule(i, rule); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.ListRules(w, r)
}

// DeleteRule handles DELETE /api/rules/{index}.
//
//	@Summary		Delete the rule at an index
//	@Tags			rules
//	@Param			index	path	int	true	"Rule index"
//	@Success		204		"Rule deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules/{index} [delete]
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	i, ok := ruleIndex(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid rule index"))
		return
	}
	if err := h.svc.DeleteRule(i); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateRule handles POST /api/rules/{index}/duplicate.
//
//	@Summary		Duplicate the rule at an index
//	@Tags			rules
//	@Produce		json
//	@Param			index	path		int	true	"Rule index"
//	@Success		201		{object}	RuleListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules/{index}/duplicate [post]
func (h *Handler) DuplicateRule(w http.ResponseWriter, r *http.Request) {
	i, ok := ruleIndex(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid rule index"))
		return
	}
	if err := h.svc.DuplicateRule(i); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rs, issues := h.svc.Rules()
	writeJSON(w, http.StatusCreated, RuleListResponse{Rules: rs, Issues: issueDTOs(issues)})
}

// ReorderRules handles POST /api/rules/reorder.
//
//	@Summary		Move a rule to a new position
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReorderRequest	true	"From and to indices"
//	@Success		200		{object}	RuleListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules/reorder [post]
func (h *Handler) ReorderRules(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.ReorderRules(req.From, req.To); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.ListRules(w, r)
}

// Preview handles POST /api/preview.
//
//	@Summary		Compute where a note would move without moving it
//	@Tags			moves
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Note path"
//	@Success		200		{object}	mover.Outcome
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Preview(r.Context(), req.Path))
}

// Process handles POST /api/process.
//
//	@Summary		Run one note through the pipeline
//	@Tags			moves
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PathRequest	true	"Note path"
//	@Success		200		{object}	mover.Outcome
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/process [post]
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Process(r.Context(), req.Path))
}

// Reorganize handles POST /api/reorganize.
//
//	@Summary		Run every note in the vault through the pipeline
//	@Tags			moves
//	@Produce		json
//	@Success		200	{object}	mover.Summary
//	@Security		BearerAuth
//	@Router			/reorganize [post]
func (h *Handler) Reorganize(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Reorganize(r.Context())
	if err != nil {
		slog.Error("reorganize failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Undo handles POST /api/undo.
//
//	@Summary		Reverse the most recent recorded move
//	@Tags			moves
//	@Produce		json
//	@Success		200	{object}	mover.UndoResult
//	@Security		BearerAuth
//	@Router			/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Undo(r.Context())
	if err != nil {
		slog.Error("undo failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History handles GET /api/history.
//
//	@Summary		List recorded moves, most recent first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries"
//	@Success		200		{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.History(limit)
	if err != nil {
		slog.Error("history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

// ClearHistory handles DELETE /api/history.
//
//	@Summary		Clear the move history
//	@Tags			history
//	@Success		204	"History cleared"
//	@Security		BearerAuth
//	@Router			/history [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(); err != nil {
		slog.Error("clear history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Read the non-rule settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Update the non-rule settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsRequest	true	"Settings to apply"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.svc.UpdateSettings(req)
	writeJSON(w, http.StatusOK, h.svc.Settings())
}
