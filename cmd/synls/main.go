package main

import (
	"os"

	"github.com/synthlang/synkit/internal/cmd/synls"
)

func main() {
	os.Exit(synls.Run(os.Args[1:]))
}
