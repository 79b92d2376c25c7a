package main

import (
	"os"

	"github.com/synthlang/synkit/internal/cmd/synlint"
)

func main() {
	os.Exit(synlint.Run(os.Args[1:]))
}
