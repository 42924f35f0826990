// Package tools provides a toolround.ToolExecutor over a set of registered
// tools. Parameter schemas are JSON Schema, either declared by hand (Static)
// or inferred from a Go type (Func); arguments are validated before a tool runs.
package tools
