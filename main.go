package main

import (
	"fmt"
	"os"

	"cybersjakk/ui"
)

func main() {
	if err := ui.RunCybersjakk(); err != nil {
		fmt.Fprintf(os.Stderr, "error cybersjakk: %v\n", err)
		os.Exit(1)
	}
}
