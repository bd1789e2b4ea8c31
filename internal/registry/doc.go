// Package registry persists the ordered mapping of repository names to
// working copy paths that the updater walks on every run.
//
// The document is a flat JSON object by default; files ending in .yaml or
// .yml hold the same mapping as a YAML block mapping. Declaration order is
// preserved in both directions, and writes go through a temporary file
// renamed into place under an exclusive flock.
package registry
