// Package main is the entry point for the dobbie CLI.
package main

import "github.com/sagarrai21802/Dobbie/internal/cli"

func main() {
	cli.Execute()
}
