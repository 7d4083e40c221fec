package vmcctl

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/vmcctl/internal/mcp"
)

// MCPServer exposes a client's control surface as MCP tools.
type MCPServer = internalmcp.Server

// NewMCPServer creates an MCP server whose tools drive client: one tool per
// host command, named set_* and get_*.
func NewMCPServer(client Client, version string) *MCPServer {
	server := internalmcp.NewServer("vmcctl", version)
	internalmcp.RegisterControlTools(server, client)

	return server
}

// ServeMCPStdio serves client's tools to an MCP client over stdin/stdout
// until ctx is cancelled or the peer disconnects.
func ServeMCPStdio(ctx context.Context, client Client, version string) error {
	return NewMCPServer(client, version).Serve(ctx, &mcp.StdioTransport{})
}
