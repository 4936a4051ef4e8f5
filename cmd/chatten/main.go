package main

import (
	"chatten/internal/cli"
)

func main() {
	cli.Execute()
}
