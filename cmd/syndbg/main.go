package main

import (
	"os"

	"github.com/synthlang/synkit/internal/cmd/syndbg"
)

func main() {
	os.Exit(syndbg.Run(os.Args[1:]))
}
