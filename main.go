// Package main is the entry point for mcastdump.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/mcastdump/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcastdump: %v\n", err)
		os.Exit(1)
	}
}
