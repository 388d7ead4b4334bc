package main

import (
	"os"

	"github.com/r1pc0rd/SemanticRouter/cmd/semrouter/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
