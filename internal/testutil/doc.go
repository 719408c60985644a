// Package testutil provides in-memory collaborators for tests: a scripted
// transport that records sends and cancels, and a cache that records every
// operation.
package testutil
