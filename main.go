package main

import "github.com/sudolite/sudolite/cli"

func main() {
	cli.Execute()
}
