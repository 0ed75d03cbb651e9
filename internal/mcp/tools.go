package mcp

import "github.com/mark3labs/mcp-go/mcp"

// getViewportTool defines the get_viewport MCP tool.
var getViewportTool = mcp.NewTool("get_viewport",
	mcp.WithDescription("Get the current viewport state: image size, center, offset, last sample displacement and phase."),
)

// listMarkersTool defines the list_markers MCP tool.
var listMarkersTool = mcp.NewTool("list_markers",
	mcp.WithDescription("List every animal marker with its current position in container coordinates."),
)

// loadImageTool defines the load_image MCP tool.
var loadImageTool = mcp.NewTool("load_image",
	mcp.WithDescription("Report that the map image finished loading. Centers the map in the container and resets the drag baseline."),
	mcp.WithNumber("container_width",
		mcp.Required(),
		mcp.Description("Container width in pixels"),
	),
	mcp.WithNumber("container_height",
		mcp.Required(),
		mcp.Description("Container height in pixels"),
	),
	mcp.WithNumber("natural_width",
		mcp.Description("Natural image width in pixels (defaults to the configured map image)"),
	),
	mcp.WithNumber("natural_height",
		mcp.Description("Natural image height in pixels (defaults to the configured map image)"),
	),
)

// panMapTool defines the pan_map MCP tool.
var panMapTool = mcp.NewTool("pan_map",
	mcp.WithDescription("Apply a cumulative drag sample. Returns the per-sample delta every marker was moved by and the new offset."),
	mcp.WithNumber("x",
		mcp.Required(),
		mcp.Description("Cumulative horizontal drag displacement since the gesture baseline"),
	),
	mcp.WithNumber("y",
		mcp.Required(),
		mcp.Description("Cumulative vertical drag displacement since the gesture baseline"),
	),
)

// getAnimalTool defines the get_animal MCP tool.
var getAnimalTool = mcp.NewTool("get_animal",
	mcp.WithDescription("Get the detail-drawer profile of an animal marker: name, sex, age, personality, distance and status bars."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Marker id, e.g. dog1"),
	),
)

// askGuideTool defines the ask_guide MCP tool.
var askGuideTool = mcp.NewTool("ask_guide",
	mcp.WithDescription("Ask the park guide chat a question. The exchange is stored in the conversation transcript."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Question text"),
	),
	mcp.WithString("conversation_id",
		mcp.Description("Continue an existing conversation (optional)"),
	),
)
