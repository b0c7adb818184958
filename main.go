package main

import (
	"os"

	"github.com/davidschrooten/index-bootstrap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
