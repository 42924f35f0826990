// Package gemini is the toolround backend for the Google Gemini (genai) API.
//
// Every tool declaration is sent as its own genai.Tool. Parameters go out as
// ParametersJsonSchema unless WithTypedSchema is set. The base Gemini API
// does not issue function call IDs, so ToolCallPart.ID is usually empty and
// is echoed back unchanged on the matching FunctionResponse.
//
// Only the first candidate is read. A response without candidates is
// adapter.ErrEmptyResponse, which the orchestrator reports as malformed.
package gemini
