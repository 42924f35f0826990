// Package fileregistry serves profiles from a directory, loading YAML files
// on demand and caching them. GetProfile resolves name and env to
// {dir}/{name}.{env}.yaml or .yml with fallback to {dir}/{name}.yaml or .yml.
package fileregistry
