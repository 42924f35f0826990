// Package anthropic is the toolround backend for the Anthropic Messages API.
//
// Tool results are sent as tool_result blocks whose content is the JSON
// encoding of the result mapping. Stop reason tool_use maps to
// toolround.StopReasonToolCalls, which the orchestrator treats as a normal stop.
package anthropic
