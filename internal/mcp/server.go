// Package mcp exposes the schematic operations as MCP tools over stdio.
package mcp

import (
	"log"
	"os"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"generate_schematic": {
		def:     generateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
	"validate_description": {
		def:     validateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleValidate },
	},
	"decode_schematic": {
		def:     decodeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDecode },
	},
	"add_component": {
		def:     addComponentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddComponent },
	},
	"connect_pins": {
		def:     connectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConnect },
	},
	"extract_netlist": {
		def:     netlistToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNetlist },
	},
	"validation_report": {
		def:     reportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReport },
	},
	"list_templates": {
		def:     listTemplatesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListTemplates },
	},
	"get_template": {
		def:     getTemplateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetTemplate },
	},
	"save_schematic": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"load_schematic": {
		def:     loadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"list_schematics": {
		def:     listSchematicsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListSchematics },
	},
}

// AllToolNames returns the tool names in sorted order.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
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

// NewServer creates an MCP server with the schematic tools registered.
// Tools listed in cfg.DisabledTools are left out.
func NewServer(o *ops.Ops, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"opentracesch",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(o)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server using stdio transport. Stdout carries the
// protocol, so logging goes to stderr.
func Run(o *ops.Ops, cfg *config.Config, version string) error {
	log.SetOutput(os.Stderr)
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("[mcp] ignoring unknown disabled tools: %v", unknown)
	}
	s := NewServer(o, cfg, version)
	log.Printf("[mcp] serving %d tools on stdio", len(s.ListTools()))
	return server.ServeStdio(s)
}
