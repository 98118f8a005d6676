// Package mcp exposes the workout service as Model Context Protocol tools so
// an assistant can log and read workouts over stdio.
package mcp

import (
	"context"

	"repe/internal/server/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverVersion = "1.0.0"

// Server wraps the MCP server with service access
type Server struct {
	mcpServer *mcp.Server
	svc       *service.Service
}

func NewServer(svc *service.Service) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: "repe", Version: serverVersion}, nil),
		svc:       svc,
	}
	s.registerTools()
	return s
}

// Serve runs the server on stdin/stdout until ctx is done or the peer disconnects
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to t; used for in-process transports
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}
