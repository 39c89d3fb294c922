package main

import "github.com/pfrederiksen/afl-stats/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
