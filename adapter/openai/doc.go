// Package openai is the toolround backend for the OpenAI Chat Completions API.
// It also serves OpenAI-compatible servers through option.WithBaseURL.
//
// The system content goes out as a leading system message. Each tool result
// becomes its own tool message carrying the JSON-encoded result mapping.
package openai
