// Package mcp exposes the control surface as Model Context Protocol tools.
//
// Each host command becomes one tool: the Set* commands are fire-and-forget
// tools that report "ok", and the Get* requests return the host's reply as
// JSON text. Tools are kept in a registry that can be invoked directly or
// served to an MCP client over any go-sdk transport, typically stdio.
package mcp
