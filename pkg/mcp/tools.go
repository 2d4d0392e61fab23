package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the pillbox service and whether the physical dispenser is connected"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_dispenser_status",
			mcp.WithDescription("Get whether the dispenser is open and when it will close automatically"),
		),
		s.handleGetStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("open_dispenser",
			mcp.WithDescription("Open a dispenser compartment. Fails if the dispenser is already open."),
			mcp.WithNumber("compartment",
				mcp.Description("Compartment number, starting at 1 (default 1)"),
			),
			mcp.WithBoolean("scheduled",
				mcp.Description("Close again automatically after the configured delay (default false)"),
			),
		),
		s.handleOpen,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("close_dispenser",
			mcp.WithDescription("Close a dispenser compartment. Fails if the dispenser is already closed."),
			mcp.WithNumber("compartment",
				mcp.Description("Compartment number, starting at 1 (default 1)"),
			),
		),
		s.handleClose,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("check_auto_close",
			mcp.WithDescription("Close the dispenser now if its scheduled auto-close deadline has passed"),
		),
		s.handleCheckAutoClose,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_command_history",
			mcp.WithDescription("List recent dispenser commands, newest first"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of entries, 1-500 (default 50)"),
			),
		),
		s.handleListHistory,
	)
}
