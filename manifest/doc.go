// Package manifest parses YAML profiles that configure an orchestrator:
// which provider and model to call, an optional system prompt override,
// a prior-context token limit and extra tool declarations.
//
// Registries that serve profiles by name implement ProfileRegistry; see
// fileregistry and embedregistry.
package manifest
