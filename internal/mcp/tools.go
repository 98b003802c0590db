package mcp

import "github.com/mark3labs/mcp-go/mcp"

const formatHelp = "Description syntax: auto (default), block (YAML) or line"

var generateToolDef = mcp.NewTool("generate_schematic",
	mcp.WithDescription("Generate a KiCad schematic from a circuit description or a template. "+
		"Returns the document text, nets, placements and sheet usage."),
	mcp.WithString("description", mcp.Description("Circuit description text; omit when using template")),
	mcp.WithString("template", mcp.Description("Template name to generate instead of a description")),
	mcp.WithString("format", mcp.Description(formatHelp), mcp.Enum("auto", "block", "line")),
	mcp.WithString("save_as", mcp.Description("Store the generated document under this name")),
)

var validateToolDef = mcp.NewTool("validate_description",
	mcp.WithDescription("Check a circuit description and report every error and warning without generating a document."),
	mcp.WithString("description", mcp.Required(), mcp.Description("Circuit description text")),
	mcp.WithString("format", mcp.Description(formatHelp), mcp.Enum("auto", "block", "line")),
)

var decodeToolDef = mcp.NewTool("decode_schematic",
	mcp.WithDescription("Parse a .kicad_sch document and summarize its components, nets and contents."),
	mcp.WithString("schematic", mcp.Required(), mcp.Description("Document text")),
)

var addComponentToolDef = mcp.NewTool("add_component",
	mcp.WithDescription("Add a component to a document. Without x and y the component is placed automatically."),
	mcp.WithString("schematic", mcp.Required(), mcp.Description("Document text")),
	mcp.WithString("type", mcp.Required(), mcp.Description("Component type keyword (resistor, led, ic, ...) or power name (+5V, GND)")),
	mcp.WithString("ref", mcp.Description("Reference designator; defaults to the next free one")),
	mcp.WithString("value", mcp.Description("Component value")),
	mcp.WithNumber("x", mcp.Description("X position in mm")),
	mcp.WithNumber("y", mcp.Description("Y position in mm")),
	mcp.WithNumber("rotation", mcp.Description("Rotation in degrees: 0, 90, 180 or 270")),
	mcp.WithString("footprint", mcp.Description("PCB footprint property")),
)

var connectToolDef = mcp.NewTool("connect_pins",
	mcp.WithDescription("Connect two pins of a document with a wire and update its nets."),
	mcp.WithString("schematic", mcp.Required(), mcp.Description("Document text")),
	mcp.WithString("from", mcp.Required(), mcp.Description("First pin as REF.PIN, or a power name")),
	mcp.WithString("to", mcp.Required(), mcp.Description("Second pin as REF.PIN, or a power name")),
	mcp.WithString("net", mcp.Description("Name for the joined net")),
)

var netlistToolDef = mcp.NewTool("extract_netlist",
	mcp.WithDescription("Rebuild the nets of a document from its wiring and list unconnected pins."),
	mcp.WithString("schematic", mcp.Required(), mcp.Description("Document text")),
)

var reportToolDef = mcp.NewTool("validation_report",
	mcp.WithDescription("Render a Markdown validation report for a description or a document."),
	mcp.WithString("description", mcp.Description("Circuit description text")),
	mcp.WithString("format", mcp.Description(formatHelp), mcp.Enum("auto", "block", "line")),
	mcp.WithString("schematic", mcp.Description("Document text; used instead of description when set")),
	mcp.WithBoolean("html", mcp.Description("Also render the report as HTML")),
)

var listTemplatesToolDef = mcp.NewTool("list_templates",
	mcp.WithDescription("List the built-in circuit templates."),
)

var getTemplateToolDef = mcp.NewTool("get_template",
	mcp.WithDescription("Return the description text of a built-in template."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Template name")),
)

var saveToolDef = mcp.NewTool("save_schematic",
	mcp.WithDescription("Store a document under a name, replacing any document with that name."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Document name")),
	mcp.WithString("schematic", mcp.Required(), mcp.Description("Document text")),
)

var loadToolDef = mcp.NewTool("load_schematic",
	mcp.WithDescription("Load a stored document with its summary."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Document name")),
)

var listSchematicsToolDef = mcp.NewTool("list_schematics",
	mcp.WithDescription("List stored documents."),
)
