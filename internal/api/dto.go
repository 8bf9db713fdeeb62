package api

import (
	"github.com/starford/raido/internal/rules"
)

// RuleListResponse wraps the rule list plus any compile issues, so a
// client can show broken rules without losing them.
type RuleListResponse struct {
	Rules  []rules.Rule `json:"rules" validate:"required"`
	Issues []IssueDTO   `json:"issues,omitempty"`
}

// IssueDTO is a serializable per-rule compile failure.
type IssueDTO struct {
	Index int    `json:"index" example:"2"`
	Key   string `json:"key" example:"status"`
	Error string `json:"error" example:"dangerous pattern"`
}

// ReorderRequest is the request body for rule reordering.
type ReorderRequest struct {
	From int `json:"from" example:"2" validate:"required"`
	To   int `json:"to" example:"0" validate:"required"`
}

// PathRequest carries a single vault-relative note path.
type PathRequest struct {
	Path string `json:"path" example:"Inbox/note.md" validate:"required"`
}

// SettingsResponse is the non-rule settings payload.
type SettingsResponse struct {
	MaxHistorySize  int      `json:"maxHistorySize" example:"50"`
	ExcludePatterns []string `json:"excludePatterns"`
}

// SettingsRequest updates non-rule settings; nil fields are left alone.
type SettingsRequest struct {
	MaxHistorySize  *int     `json:"maxHistorySize,omitempty"`
	ExcludePatterns []string `json:"excludePatterns,omitempty"`
}

func issueDTOs(issues []rules.Issue) []IssueDTO {
	out := make([]IssueDTO, len(issues))
	for i, is := range issues {
		out[i] = IssueDTO{Index: is.Index, Key: is.Key, Error: is.Err.Error()}
	}
	return out
}
