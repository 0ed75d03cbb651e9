package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/mapview/internal/animals"
	"github.com/ziadkadry99/mapview/internal/chat"
	"github.com/ziadkadry99/mapview/internal/mapimage"
	"github.com/ziadkadry99/mapview/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that drives one viewer session from an agent.
type Server struct {
	session *session.Session
	animals *animals.Directory
	chat    *chat.Service
	asset   *mapimage.Asset
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. chatSvc and asset may be nil; the
// ask_guide tool is only registered when chatSvc is set.
func NewServer(sess *session.Session, dir *animals.Directory, chatSvc *chat.Service, asset *mapimage.Asset) *Server {
	s := &Server{
		session: sess,
		animals: dir,
		chat:    chatSvc,
		asset:   asset,
	}

	s.mcp = server.NewMCPServer(
		"mapview",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(getViewportTool, s.handleGetViewport)
	s.mcp.AddTool(listMarkersTool, s.handleListMarkers)
	s.mcp.AddTool(loadImageTool, s.handleLoadImage)
	s.mcp.AddTool(panMapTool, s.handlePanMap)
	s.mcp.AddTool(getAnimalTool, s.handleGetAnimal)
	if s.chat != nil {
		s.mcp.AddTool(askGuideTool, s.handleAskGuide)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
