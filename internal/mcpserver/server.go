// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/mover"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/settings"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp    *server.MCPServer
	engine *mover.Engine
	mgr    *settings.Manager
}

// New creates a new MCP server with all Raido tools registered.
func New(engine *mover.Engine, mgr *settings.Manager) *Server {
	s := &Server{engine: engine, mgr: mgr}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("preview_move",
		mcp.WithDescription("Compute where a note would be moved by the current rules, "+
			"without moving it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. Inbox/note.md)")),
	), s.previewMove)

	s.mcp.AddTool(mcp.NewTool("process_note",
		mcp.WithDescription("Run one note through the rule pipeline and move it if a rule matches."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.processNote)

	s.mcp.AddTool(mcp.NewTool("reorganize_vault",
		mcp.WithDescription("Run every note in the vault through the rule pipeline. "+
			"Returns a summary with per-note outcomes."),
	), s.reorganizeVault)

	s.mcp.AddTool(mcp.NewTool("undo_last_move",
		mcp.WithDescription("Reverse the most recent recorded move."),
	), s.undoLastMove)

	s.mcp.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List the rules in evaluation order, including compile issues. "+
			"The first matching rule wins. See the get_rule_contract tool or the "+
			"raido://rule-format resource for the rule schema."),
	), s.listRules)

	s.mcp.AddTool(mcp.NewTool("add_rule",
		mcp.WithDescription("Append a rule at the end of the evaluation order. "+
			"The rule MUST follow the rule format contract; read it first via "+
			"the get_rule_contract tool or the raido://rule-format resource."),
		mcp.WithString("rule", mcp.Required(), mcp.Description("Rule as a JSON object")),
	), s.addRule)

	s.mcp.AddTool(mcp.NewTool("move_history",
		mcp.WithDescription("List recorded moves, most recent first."),
	), s.moveHistory)

	s.mcp.AddTool(mcp.NewTool("get_rule_contract",
		mcp.WithDescription("Returns the canonical Raido rule format contract. "+
			"Call this before adding or editing rules to ensure correct structure."),
	), s.getRuleContract)

	// Resource: rule format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://rule-format", "Rule Format Contract",
			mcp.WithResourceDescription("Canonical JSON rule format that all rules must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRuleFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) previewMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := s.engine.Preview(ctx, path)
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) processNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := s.engine.ProcessPath(ctx, path)
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) reorganizeVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.engine.ReorganizeAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(sum, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) undoLastMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.engine.UndoLast(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload := map[string]any{
		"rules": s.mgr.Rules(),
	}
	if issues := s.mgr.Issues(); len(issues) > 0 {
		var lines []string
		for _, is := range issues {
			lines = append(lines, is.String())
		}
		payload["issues"] = lines
	}
	data, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) addRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("rule")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var r rules.Rule
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid rule JSON: %v", err)), nil
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mgr.AddRule(r)
	return mcp.NewToolResultText(fmt.Sprintf("added rule for key %q at position %d", r.Key, len(s.mgr.Rules())-1)), nil
}

func (s *Server) moveHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.engine.History(0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no moves recorded"), nil
	}
	data, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getRuleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RuleFormatContract), nil
}

func (s *Server) readRuleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://rule-format",
			MIMEType: "text/markdown",
			Text:     RuleFormatContract,
		},
	}, nil
}
