// Package discogs is a small client for the Discogs database API: release
// search by barcode, catalog number or free text, and release detail lookup.
//
// Requests authenticate with a personal access token or a consumer
// key/secret pair and always send the configured User-Agent, which Discogs
// requires. The client performs no pacing of its own; callers wrap it with a
// ratelimit.Policy.
package discogs
