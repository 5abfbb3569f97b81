package main

import "kwsearch/internal/cli"

func main() {
	cli.Execute()
}
