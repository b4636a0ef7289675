// Package main is the entry point for pulse, the link-layer UDP frame emitter.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
