// Package mcptool exposes the tools of a Model Context Protocol server as a
// toolround.ToolExecutor.
//
// Connect over any mcp.Transport, or use ConnectCommand for a stdio server
// and ConnectSSE for an HTTP one. Specs lists the server's tools as
// declarations for a Request; Execute runs a call through CallTool.
package mcptool
