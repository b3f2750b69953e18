package main

import (
	"os"

	"github.com/kellatirupathi/darwinbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
