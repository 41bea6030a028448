package main

import "subtitle-matcher/internal/cli"

func main() {
	cli.Main()
}
