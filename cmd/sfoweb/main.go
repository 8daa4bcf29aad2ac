package main

import "github.com/pfrederiksen/sfoweb/internal/cli"

func main() {
	cli.Execute()
}
