package mcp

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/logger"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"data", "stats", "migraine", "medication"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"data_export": {
		def:     dataExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"data_import": {
		def:     dataImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"stats_overview": {
		def:     statsOverviewToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverview },
	},
	"stats_monthly": {
		def:     statsMonthlyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMonthly },
	},
	"stats_weekday": {
		def:     statsWeekdayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWeekday },
	},
	"stats_medication": {
		def:     statsMedicationToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleByMedication },
	},
	"stats_nature": {
		def:     statsNatureToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleByNature },
	},
	"stats_intensity": {
		def:     statsIntensityToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleByIntensity },
	},
	"stats_yearly": {
		def:     statsYearlyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleYearly },
	},
	"migraine_log": {
		def:     migraineLogToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogMigraine },
	},
	"medication_add": {
		def:     medicationAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddMedication },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "stats_monthly" → "stats").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the tracker tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, log *logger.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"migraine",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, log)

	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn("unknown types in disabled_types", "types", unknown)
	}

	// Expand types first, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	registered := 0
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
		registered++
	}
	log.Debug("mcp tools registered", "count", registered, "disabled", len(disabled))

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, log *logger.Logger, version string) error {
	s := NewServer(db, cfg, log, version)
	log.Info("mcp server starting", "transport", "stdio", "version", version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
