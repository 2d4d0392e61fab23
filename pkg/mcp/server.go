package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device"
	"github.com/urmzd/pillbox/pkg/device/schema"
)

// Server wraps the MCP server with the dispenser tools
type Server struct {
	mcpServer  *server.MCPServer
	controller device.Controller
	validator  *schema.Validator
	history    db.CommandLogStore
	profileID  int64
}

// NewServer creates a new MCP server for dispenser control. history may be
// nil, in which case list_command_history reports an error.
func NewServer(controller device.Controller, validator *schema.Validator, history db.CommandLogStore, profileID int64) *Server {
	s := &Server{
		controller: controller,
		validator:  validator,
		history:    history,
		profileID:  profileID,
	}

	s.mcpServer = server.NewMCPServer(
		"pillbox",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
