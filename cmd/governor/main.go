package main

import (
	"os"

	"trade-governor/cmd/governor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
