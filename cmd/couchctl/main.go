package main

import "github.com/skshohagmiah/couchctl/internal/cli"

func main() {
	cli.Execute()
}
