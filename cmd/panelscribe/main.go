package main

import "github.com/forPelevin/panelscribe/internal/cli"

func main() {
	cli.Main()
}
