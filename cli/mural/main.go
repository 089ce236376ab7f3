package main

import (
	"os"

	muralcmder "github.com/papercomputeco/mural/cmd/mural"
)

func main() {
	cmd := muralcmder.NewMuralCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
