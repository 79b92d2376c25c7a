package main

import (
	"os"

	"github.com/synthlang/synkit/internal/cmd/synfmt"
)

func main() {
	os.Exit(synfmt.Run(os.Args[1:]))
}
