package main

import "github.com/forPelevin/gifcut/internal/cli"

func main() {
	cli.Main()
}
