// Package releasecache keeps Discogs release details on disk so reprocessing
// a session does not fetch the same release again.
//
// The cache is a single JSON file rewritten atomically on every change. An
// empty path disables it and turns every operation into a no-op.
package releasecache
