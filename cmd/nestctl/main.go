// Command nestctl is the operator CLI: replaying scheduled campaigns,
// sweeping stuck ledger reservations, and minting development credentials.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand(defaultEnvironment()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
