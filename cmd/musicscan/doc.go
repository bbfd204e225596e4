// Command musicscan is the operator CLI for the MusicScan identification
// service. It runs the HTTP server, identifies a CD from image URLs without
// the server, inspects stored sessions and manages configuration.
package main
