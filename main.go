package main

import (
	"os"

	"github.com/spigell/intern-radar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
