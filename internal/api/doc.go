// Package api exposes the identification pipeline over HTTP.
//
// Routes are served by a chi router. Everything except the health probe
// requires the configured bearer token, and every error is returned as a
// JSON envelope of the form {"error": "..."}.
package api
