// Package scan defines the records exchanged between the identification
// pipeline, the store and the HTTP API: sessions, images, field extractions,
// catalog candidates, the persisted result and its audit log.
//
// The match status is a closed set. Verdict values are produced by the
// scorer and converted to a MatchStatus for persistence; every switch over
// either form handles all four cases.
package scan
