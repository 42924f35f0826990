// Package git provides a remoteregistry.Fetcher that reads profiles from a
// Git repository. The repository is cloned on first use and pulled on later
// fetches; files are read from the working tree.
package git
