// Package autocommit stages, commits, and pushes pending changes in every
// repository listed by the registry.
//
// Service.UpdateAll walks the repositories in declaration order and never
// stops at the first failure; each repository yields an Outcome and the run
// is summarized as "N/M updated".
package autocommit
