package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server holds a registry of tools and serves them over MCP.
//
// Tools can be invoked in-process through CallTool, which is what tests and
// embedding hosts use, or served to an MCP client with Serve.
type Server struct {
	name    string
	version string
	mu      sync.RWMutex
	tools   map[string]*registeredTool
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates an empty tool server.
func NewServer(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 8),
	}
}

// AddTool registers a tool, replacing any tool of the same name.
func (s *Server) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = &registeredTool{
		tool:    tool,
		handler: handler,
	}
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version.
func (s *Server) Version() string {
	return s.version
}

// ListTools returns every registered tool, ordered by name.
func (s *Server) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, t.tool)
	}

	slices.SortFunc(result, func(a, b *mcp.Tool) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return result
}

// CallTool executes a tool by name with the given input.
// Failures are reported in the result, never as an error.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: inputBytes,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	if result == nil {
		return &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	return result
}

// Serve registers the tools with an MCP server and runs it on transport
// until ctx is cancelled or the peer disconnects.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	server := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	for _, t := range s.tools {
		server.AddTool(t.tool, t.handler)
	}
	s.mu.RUnlock()

	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}

	return nil
}

// SimpleSchema creates a jsonschema.Schema from a simple type map.
//
// Input format: {"width": "int", "controller": "string"}
// Every listed property is required.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
		required = append(required, name)
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// goTypeToJSONSchema converts a Go type string to a JSON Schema type.
func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int32", "int64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(goType[2:]),
			}
		}

		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// JSONResult creates a CallToolResult holding v as indented JSON text.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to encode result: " + err.Error())
	}

	return TextResult(string(data))
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil {
		return make(map[string]any), nil
	}

	if len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}
