// Command sage runs the conversational agent from a terminal: an
// interactive chat session plus small subcommands for inspecting long-term
// memory and preferences.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
