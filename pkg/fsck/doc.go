// Package fsck detects and heals corruption in a cask store. A repair run
// evicts processes holding the store open, takes the store's exclusive
// lock, enumerates every physically present object, restores commits whose
// refs dangle, marks commits with incomplete closures as partial, and
// re-fetches partial remotely-backed refs in full. Every phase is
// idempotent, so an interrupted run is safe to re-invoke.
package fsck
