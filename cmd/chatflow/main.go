package main

import "github.com/hupe1980/chatflow/internal/cli"

func main() {
	cli.Execute()
}
