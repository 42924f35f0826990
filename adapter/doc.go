// Package adapter holds what the provider backends share: sentinel errors
// and conversions between toolround parts and JSON. Backends live in
// provider-specific subpackages and implement toolround.Backend.
package adapter
