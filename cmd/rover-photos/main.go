// rover-photos is a command-line client for NASA's Mars Rover Photos API
// with a durable response cache and an hourly request budget.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
