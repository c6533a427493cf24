// Command laph generates a working Python program for a natural-language
// task by looping generate, execute and repair against local or remote
// language models.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rhuss/laph/pkg/sandbox"
)

func main() {
	// Sandbox children re-execute this binary; Init never returns for them.
	sandbox.Init()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errExhausted) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
