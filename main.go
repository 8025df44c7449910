package main

import "github.com/vutran/strum/internal/cli"

func main() {
	cli.Execute()
}
