package main

import "github.com/jwo-cv/merlcut/internal/cli"

func main() {
	cli.Main()
}
