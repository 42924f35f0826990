// Package remoteregistry serves profiles fetched from a remote source through
// a Fetcher (HTTP here, Git in the git subpackage). Profiles are cached with
// a configurable TTL; concurrent misses for the same profile share one fetch.
package remoteregistry
