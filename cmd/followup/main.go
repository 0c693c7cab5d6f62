package main

import "followup-cli/internal/cli"

func main() {
	cli.Execute()
}
