// Package toolround answers a query with a generative-language backend and,
// when the model asks for it, runs one round of tool calls before asking the
// model for the final answer.
//
// An Orchestrator holds immutable configuration (model, system prompt,
// fixed generation settings) and is safe for concurrent use. Providers live
// in adapter subpackages; tool executors live under tools.
package toolround
