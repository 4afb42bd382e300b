package main

import (
	"os"

	"querydesk/internal/cli"
)

var Version = "0.1.0"

func main() {
	if err := cli.Execute(Version); err != nil {
		os.Exit(1)
	}
}
