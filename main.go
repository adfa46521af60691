package main

import (
	"os"

	"github.com/kilianp07/usdplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
