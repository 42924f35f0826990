// Package embedregistry serves profiles from an fs.FS such as embed.FS.
// All YAML files under the root are parsed at construction; GetProfile is a
// map lookup. Profile names must not contain ':' (the cache key separator).
package embedregistry
