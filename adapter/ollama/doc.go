// Package ollama is the toolround backend for a local or remote Ollama server.
//
// Requests are sent with Stream=false, so the response callback fires once.
// Temperature and max output tokens travel as the "temperature" and
// "num_predict" options.
package ollama
