package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	ops *ops.Ops
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(o *ops.Ops) *Handlers {
	return &Handlers{ops: o}
}

// Request types for each tool

// GenerateRequest represents the arguments for generate_schematic.
type GenerateRequest struct {
	Description string `json:"description,omitempty"`
	Template    string `json:"template,omitempty"`
	Format      string `json:"format,omitempty"`
	SaveAs      string `json:"save_as,omitempty"`
}

// ValidateRequest represents the arguments for validate_description.
type ValidateRequest struct {
	Description string `json:"description"`
	Format      string `json:"format,omitempty"`
}

// ReportRequest represents the arguments for validation_report.
type ReportRequest struct {
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
	Schematic   string `json:"schematic,omitempty"`
	HTML        bool   `json:"html,omitempty"`
}

// Handler implementations

// HandleGenerate handles the generate_schematic tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[GenerateRequest](req)
	if err != nil {
		return errorResult(err)
	}
	if input.Template != "" {
		return toolResult(h.ops.GenerateTemplate(ctx, ops.TemplateInput{Name: input.Template, SaveAs: input.SaveAs}))
	}
	if strings.TrimSpace(input.Description) == "" {
		return errorResult(errors.NewInvalidRequest("description or template is required"))
	}
	format, err := describe.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.Generate(ctx, ops.GenerateInput{
		Description: input.Description,
		Format:      format,
		SaveAs:      input.SaveAs,
	}))
}

// HandleValidate handles the validate_description tool call.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ValidateRequest](req)
	if err != nil {
		return errorResult(err)
	}
	if strings.TrimSpace(input.Description) == "" {
		return errorResult(errors.NewInvalidRequest("description is required"))
	}
	format, err := describe.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.Validate(ctx, ops.ValidateInput{Description: input.Description, Format: format}))
}

// HandleDecode handles the decode_schematic tool call.
func (h *Handlers) HandleDecode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.DecodeInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.Decode(ctx, input))
}

// HandleAddComponent handles the add_component tool call.
func (h *Handlers) HandleAddComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.AddComponentInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.AddComponent(ctx, input))
}

// HandleConnect handles the connect_pins tool call.
func (h *Handlers) HandleConnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.ConnectInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.ConnectPins(ctx, input))
}

// HandleNetlist handles the extract_netlist tool call.
func (h *Handlers) HandleNetlist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.DecodeInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.ExtractNetlist(ctx, input))
}

// HandleReport handles the validation_report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ReportRequest](req)
	if err != nil {
		return errorResult(err)
	}
	format, err := describe.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.Report(ctx, ops.ReportInput{
		Description: input.Description,
		Format:      format,
		Schematic:   input.Schematic,
		HTML:        input.HTML,
	}))
}

// HandleListTemplates handles the list_templates tool call.
func (h *Handlers) HandleListTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(h.ops.ListTemplates(ctx))
}

// HandleGetTemplate handles the get_template tool call.
func (h *Handlers) HandleGetTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.TemplateInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.GetTemplate(ctx, input))
}

// HandleSave handles the save_schematic tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.SaveInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.SaveSchematic(ctx, input))
}

// HandleLoad handles the load_schematic tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ops.LoadInput](req)
	if err != nil {
		return errorResult(err)
	}
	return toolResult(h.ops.LoadSchematic(ctx, input))
}

// HandleListSchematics handles the list_schematics tool call.
func (h *Handlers) HandleListSchematics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(h.ops.ListSchematics(ctx))
}

// Result helpers

// toolResult wraps an operation result. Failed operations are flagged with
// IsError so clients recognize them; the body is the same result tuple.
func toolResult(res *ops.Result) (*mcp.CallToolResult, error) {
	out, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return nil, err
	}
	out.IsError = !res.Success
	return out, nil
}

// errorResult reports a request that never reached an operation.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return toolResult(&ops.Result{Errors: []ops.ErrorInfo{ops.ErrorInfoOf(err)}})
}
