// Command crmctl is the operator CLI for the CRM API: sign in, manage leads, trigger reminder
// scans and run auto-calling sessions from a terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
