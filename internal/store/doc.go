// Package store persists scan sessions, their images, the normalized
// extractions and the single result per session in SQLite.
//
// Results are keyed by session id and written as a whole record, so
// reprocessing a session overwrites the previous decision. Images are
// append-only; extractions are replaced on every run.
package store
