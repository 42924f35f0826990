package remoteregistry

import "errors"

// Sentinel errors for remote registry operations.
var (
	// ErrFetchFailed indicates the Fetcher could not retrieve the profile.
	ErrFetchFailed = errors.New("remoteregistry: fetch failed")
	// ErrHTTPStatus indicates an unexpected HTTP status (e.g. 500) from HTTPFetcher.
	ErrHTTPStatus = errors.New("remoteregistry: unexpected HTTP status")
	// ErrNotFound is returned by fetchers when no candidate exists; Registry reports it as manifest.ErrProfileNotFound.
	ErrNotFound = errors.New("remoteregistry: no profile found")
)
