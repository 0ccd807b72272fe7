package cask

import "errors"

// ErrObjectNotFound reports that an object is absent from the store.
// Callers distinguish it from deeper read failures with errors.Is; absence
// is an expected, repairable condition while anything else signals
// corruption the caller cannot reason about.
var ErrObjectNotFound = errors.New("object not found")

// ErrUnknownRemote reports that a named remote is not configured.
var ErrUnknownRemote = errors.New("remote not configured")
