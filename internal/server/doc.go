// Package server wires configuration, engines, runners, and the API
// surfaces into one HTTP server.
package server
