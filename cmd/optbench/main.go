// Command optbench runs the optimizers on the reference problems and
// compares the result with the known optimum.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
