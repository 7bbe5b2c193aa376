// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the time-entry workflow for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ticktock/internal/apperr"
	"github.com/starford/ticktock/internal/models"
	"github.com/starford/ticktock/internal/timesheet"
)

const messageFormatURI = "ticktock://message-format"

// Server wraps the MCP server with time-entry tools.
type Server struct {
	mcp *server.MCPServer
	svc *timesheet.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *timesheet.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tick-Tock",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("parse_message",
		mcp.WithDescription("Parse a natural-language work message into draft time entries. "+
			"When a date is given the drafts are stored under that day. "+
			"Read the message format via get_message_format or the "+messageFormatURI+" resource."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Work description, e.g. 'Worked on ABC-123 for 2 hours'")),
		mcp.WithString("date", mcp.Description("Day to store the drafts under (YYYY-MM-DD)")),
	), s.parseMessage)

	s.mcp.AddTool(mcp.NewTool("refine_entry",
		mcp.WithDescription("Replace a draft entry with entries re-parsed from its original message, "+
			"annotated with the refinement request."),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Id of the entry to refine")),
		mcp.WithString("refinement_request", mcp.Required(), mcp.Description("What should change")),
		mcp.WithString("original_message", mcp.Required(), mcp.Description("Message the entry was parsed from")),
		mcp.WithString("date", mcp.Description("Day of the entry (YYYY-MM-DD); all days are searched when omitted")),
	), s.refineEntry)

	s.mcp.AddTool(mcp.NewTool("ship_entries",
		mcp.WithDescription("Mark draft entries of a day as logged."),
		mcp.WithArray("entry_ids", mcp.Required(), mcp.Description("Ids of the entries to ship"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day of the entries (YYYY-MM-DD)")),
	), s.shipEntries)

	s.mcp.AddTool(mcp.NewTool("get_day_entries",
		mcp.WithDescription("List the entries recorded for a day."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day (YYYY-MM-DD)")),
	), s.getDayEntries)

	s.mcp.AddTool(mcp.NewTool("get_calendar_month",
		mcp.WithDescription("Summarize the status of every day in a month."),
		mcp.WithString("month", mcp.Required(), mcp.Description("Month (YYYY-MM)")),
	), s.getCalendarMonth)

	s.mcp.AddTool(mcp.NewTool("get_message_format",
		mcp.WithDescription("Returns the guide for phrasing work messages. "+
			"Call this before parsing messages to get task ids and durations recognized."),
	), s.getMessageFormat)

	s.mcp.AddResource(
		mcp.NewResource(messageFormatURI, "Message Format Guide",
			mcp.WithResourceDescription("How to phrase work messages so time is attributed to tasks."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMessageFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func validDate(date string) error {
	if err := validation.Validate(date, validation.Date(models.DateLayout)); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return nil
}

func validMessage(field, text string) error {
	if err := validation.Validate(text, timesheet.MessageRules...); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func (s *Server) parseMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validMessage("message", message); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date := optionalString(req, "date")
	if err := validDate(date); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ParseMessage(ctx, message, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) refineEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	request, err := req.RequireString("refinement_request")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	original, err := req.RequireString("original_message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validMessage("refinement_request", request); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validMessage("original_message", original); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date := optionalString(req, "date")
	if err := validDate(date); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.RefineEntry(ctx, id, request, original, date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("entry not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) shipEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["entry_ids"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("entry_ids must be a non-empty array of strings"), nil
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		id, ok := v.(string)
		if !ok || id == "" {
			return mcp.NewToolResultError("entry_ids must be a non-empty array of strings"), nil
		}
		ids = append(ids, id)
	}
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validation.Validate(date, validation.Required, validation.Date(models.DateLayout)); err != nil {
		return mcp.NewToolResultError("date: " + err.Error()), nil
	}

	res, err := s.svc.ShipEntries(ctx, ids, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getDayEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validation.Validate(date, validation.Required, validation.Date(models.DateLayout)); err != nil {
		return mcp.NewToolResultError("date: " + err.Error()), nil
	}
	day, err := s.svc.DayEntries(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(day), nil
}

func (s *Server) getCalendarMonth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month, err := req.RequireString("month")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cal, err := s.svc.CalendarMonth(ctx, month)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cal), nil
}

func (s *Server) getMessageFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MessageFormatGuide), nil
}

func (s *Server) readMessageFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      messageFormatURI,
			MIMEType: "text/markdown",
			Text:     MessageFormatGuide,
		},
	}, nil
}
