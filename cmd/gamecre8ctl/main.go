package main

import (
	"os"

	"gamecre8/cmd/gamecre8ctl/commands"
)

var version = "dev"

func main() {
	commands.SetVersion(version)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
