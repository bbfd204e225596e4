// Package identification turns CD photos into a Discogs release decision.
//
// A run is strictly sequential: the Extractor reads printed identifiers with
// a vision model, Normalize cleans and cross-validates them, the Finder
// searches Discogs by barcode, catalog number and (only when both found
// nothing) artist and title, and the Scorer ranks candidates and picks one of
// the four verdicts. The Identifier wires these stages to the store,
// persists the result and computes photo guidance for fields that could not
// be read.
//
// Every rejection and scoring decision lands in the run's audit log so a
// result can be explained after the fact.
package identification
