// Package cask implements the on-disk embodiment of a cask store: a
// content-addressed, versioned object store holding commits, directory
// trees, directory metadata, and file blobs, linked into a DAG and exposed
// through mutable named refs. Objects are immutable once written; refs and
// partial-commit markers are the only mutable state.
package cask
