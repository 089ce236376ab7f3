// Package api provides the HTTP surface of the wall: message submission,
// stats, and a live cluster stream.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// AutoApprove marks submissions visible immediately. When false,
	// messages wait for moderation before entering the traversal.
	AutoApprove bool
}
