package mcp

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/logger"
	"github.com/cedricdekimpe/MigraineTracker/internal/ops"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log *logger.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handlers{db: db, cfg: cfg, log: log}
}

// Request types for each tool

// OwnerRequest carries the account a call acts for. Tools without other
// arguments decode into it directly.
type OwnerRequest struct {
	Email string `json:"email,omitempty"`
}

// ExportRequest represents the arguments for data_export.
type ExportRequest struct {
	OwnerRequest
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for data_import.
type ImportRequest struct {
	OwnerRequest
	Path     string          `json:"path,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

// MonthlyRequest represents the arguments for stats_monthly.
type MonthlyRequest struct {
	OwnerRequest
	Months *int `json:"months,omitempty"`
}

// YearlyRequest represents the arguments for stats_yearly.
type YearlyRequest struct {
	OwnerRequest
	Year int `json:"year,omitempty"`
}

// LogMigraineRequest represents the arguments for migraine_log.
type LogMigraineRequest struct {
	OwnerRequest
	OccurredOn     string `json:"occurred_on"`
	Nature         string `json:"nature"`
	Intensity      *int   `json:"intensity,omitempty"`
	OnPeriod       bool   `json:"on_period,omitempty"`
	MedicationName string `json:"medication_name,omitempty"`
}

// AddMedicationRequest represents the arguments for medication_add.
type AddMedicationRequest struct {
	OwnerRequest
	Name string `json:"name"`
}

// owner resolves the request's email, falling back to the configured default.
func (h *Handlers) owner(ctx context.Context, r OwnerRequest) (ops.Owner, error) {
	email := r.Email
	if strings.TrimSpace(email) == "" {
		email = h.cfg.DefaultUserEmail
	}
	if strings.TrimSpace(email) == "" {
		return ops.Owner{}, errors.NewInvalidRequest("email is required (no default_user_email configured)")
	}
	return ops.ResolveOwner(ctx, h.db, email)
}

// HandleExport handles the data_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	owner, err := h.owner(ctx, input.OwnerRequest)
	if err != nil {
		return errorResult(err), nil
	}

	if input.Path == "" {
		snap, err := ops.Export(ctx, h.db, ops.ExportInput{Owner: owner})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(snap)
	}

	result, err := ops.ExportFile(ctx, h.db, h.cfg, owner, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	h.log.Info("snapshot exported", "user", owner.Email, "path", result.Path,
		"medications", result.Medications, "migraines", result.Migraines)
	return successResult(result)
}

// HandleImport handles the data_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	hasSnapshot := len(input.Snapshot) > 0 && string(input.Snapshot) != "null"
	if (input.Path == "") == !hasSnapshot {
		return errorResult(errors.NewInvalidRequest("exactly one of path or snapshot is required")), nil
	}

	owner, err := h.owner(ctx, input.OwnerRequest)
	if err != nil {
		return errorResult(err), nil
	}

	var result *ops.ImportOutput
	if input.Path != "" {
		result, err = ops.ImportFile(ctx, h.db, h.cfg, owner, input.Path)
	} else {
		var snap *tracker.Snapshot
		snap, err = tracker.DecodeSnapshot(bytes.NewReader(input.Snapshot), h.cfg.MaxImportBytes)
		if err == nil {
			result, err = ops.Import(ctx, h.db, ops.ImportInput{Owner: owner, Snapshot: snap})
		}
	}
	if err != nil {
		h.log.Warn("snapshot import failed", "user", owner.Email, "error", err)
		return errorResult(err), nil
	}

	h.log.Info("snapshot imported", "user", owner.Email,
		"medications", result.MedicationsImported, "migraines", result.MigrainesImported)
	return successResult(result)
}

// HandleOverview handles the stats_overview tool call.
func (h *Handlers) HandleOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.ownerOnly(ctx, req, func(owner ops.Owner) (any, error) {
		return ops.Overview(ctx, h.db, owner)
	})
}

// HandleMonthly handles the stats_monthly tool call.
func (h *Handlers) HandleMonthly(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MonthlyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	owner, err := h.owner(ctx, input.OwnerRequest)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Monthly(ctx, h.db, ops.MonthlyInput{Owner: owner, Months: input.Months})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWeekday handles the stats_weekday tool call.
func (h *Handlers) HandleWeekday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.ownerOnly(ctx, req, func(owner ops.Owner) (any, error) {
		return ops.ByWeekday(ctx, h.db, owner)
	})
}

// HandleByMedication handles the stats_medication tool call.
func (h *Handlers) HandleByMedication(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.ownerOnly(ctx, req, func(owner ops.Owner) (any, error) {
		return ops.ByMedication(ctx, h.db, owner)
	})
}

// HandleByNature handles the stats_nature tool call.
func (h *Handlers) HandleByNature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.ownerOnly(ctx, req, func(owner ops.Owner) (any, error) {
		return ops.ByNature(ctx, h.db, owner)
	})
}

// HandleByIntensity handles the stats_intensity tool call.
func (h *Handlers) HandleByIntensity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.ownerOnly(ctx, req, func(owner ops.Owner) (any, error) {
		return ops.ByIntensity(ctx, h.db, owner)
	})
}

// HandleYearly handles the stats_yearly tool call.
func (h *Handlers) HandleYearly(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[YearlyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	owner, err := h.owner(ctx, input.OwnerRequest)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Yearly(ctx, h.db, ops.YearlyInput{Owner: owner, Year: input.Year, Now: time.Now()})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLogMigraine handles the migraine_log tool call.
func (h *Handlers) HandleLogMigraine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LogMigraineRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	owner, err := h.owner(ctx, input.OwnerRequest)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.LogMigraine(ctx, h.db, ops.LogMigraineInput{
		Owner:          owner,
		OccurredOn:     input.OccurredOn,
		Nature:         input.Nature,
		Intensity:      input.Intensity,
		OnPeriod:       input.OnPeriod,
		MedicationName: input.MedicationName,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddMedication handles the medication_add tool call.
func (h *Handlers) HandleAddMedication(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddMedicationRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	owner, err := h.owner(ctx, input.OwnerRequest)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.AddMedication(ctx, h.db, ops.AddMedicationInput{Owner: owner, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// ownerOnly runs a tool whose only argument is the account email.
func (h *Handlers) ownerOnly(ctx context.Context, req mcp.CallToolRequest, fn func(ops.Owner) (any, error)) (*mcp.CallToolResult, error) {
	input, err := decode[OwnerRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	owner, err := h.owner(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := fn(owner)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	tErr := errors.As(err)
	message := tErr.Message
	// Keep context added by fmt.Errorf wrapping, e.g. "migraines[2]: ..."
	if outer := err.Error(); outer != tErr.Error() && strings.HasSuffix(outer, tErr.Error()) {
		message = strings.TrimSuffix(outer, tErr.Error()) + tErr.Message
	}
	errorObj := map[string]any{
		"code":    tErr.Code,
		"message": message,
		"status":  tErr.Status,
	}
	// Internal errors can carry file paths or SQL text
	if tErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if tErr.Details != nil {
		errorObj["details"] = tErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
