package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/skosovsky/toolround"
)

// ErrToolFailed is returned when the server reports a tool result with IsError set.
var ErrToolFailed = errors.New("mcptool: tool reported an error")

// Version is sent to servers in the client implementation info.
const Version = "0.1.0"

// Client is a connected MCP session. Safe for concurrent use.
type Client struct {
	session *mcp.ClientSession
}

// Connect initializes a session over transport.
func Connect(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "toolround", Version: Version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptool: connect: %w", err)
	}
	return &Client{session: session}, nil
}

// ConnectCommand starts the server command and talks to it over stdio.
func ConnectCommand(ctx context.Context, name string, args ...string) (*Client, error) {
	if name == "" {
		return nil, errors.New("mcptool: empty server command")
	}
	return Connect(ctx, &mcp.CommandTransport{Command: exec.Command(name, args...)}) //nolint:gosec // command comes from the operator
}

// ConnectSSE connects to a server's SSE endpoint.
func ConnectSSE(ctx context.Context, endpoint string) (*Client, error) {
	return Connect(ctx, &mcp.SSEClientTransport{Endpoint: endpoint})
}

// Specs lists every tool the server offers, following pagination.
func (c *Client) Specs(ctx context.Context) ([]toolround.ToolSpec, error) {
	var specs []toolround.ToolSpec
	params := &mcp.ListToolsParams{}
	for {
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("mcptool: list tools: %w", err)
		}
		for _, t := range res.Tools {
			spec, err := toolSpec(t)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
		if res.NextCursor == "" {
			return specs, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// Execute calls the named tool and returns its text content joined by newlines.
func (c *Client) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcptool: call %q: %w", name, err)
	}
	text := resultText(res)
	if res.IsError {
		return nil, fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text)
	}
	return text, nil
}

// Close ends the session. For command transports this also stops the server process.
func (c *Client) Close() error {
	return c.session.Close()
}

func toolSpec(t *mcp.Tool) (toolround.ToolSpec, error) {
	spec := toolround.ToolSpec{Name: t.Name, Description: t.Description}
	if t.InputSchema == nil {
		return spec, nil
	}
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return toolround.ToolSpec{}, fmt.Errorf("mcptool: schema of %q: %w", t.Name, err)
	}
	if err := json.Unmarshal(raw, &spec.Parameters); err != nil {
		return toolround.ToolSpec{}, fmt.Errorf("mcptool: schema of %q: %w", t.Name, err)
	}
	return spec, nil
}

func resultText(res *mcp.CallToolResult) string {
	var texts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}

var _ toolround.ToolExecutor = (*Client)(nil)
