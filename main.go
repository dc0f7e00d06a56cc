package main

import (
	"os"

	"github.com/stranka-dev/stranka/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
