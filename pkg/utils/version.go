// Package utils holds small one-off helpers that have no better home.
package utils

// Build metadata, stamped via -ldflags at release time.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
