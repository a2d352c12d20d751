// Command archonctl is the administrative client for archon-node: it
// issues the same JSON requests an operator's gateway would, against
// a running node's HTTP API.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is archonctl's testable entrypoint.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "tenant":
		return dispatchTenant(args[2:], stdout, stderr)
	case "identity":
		return dispatchIdentity(args[2:], stdout, stderr)
	case "token":
		return dispatchToken(args[2:], stdout, stderr)
	case "contract":
		return dispatchContract(args[2:], stdout, stderr)
	case "span":
		return dispatchSpan(args[2:], stdout, stderr)
	case "federation":
		return dispatchFederation(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "archonctl <command> <subcommand> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  tenant create|assign")
	fmt.Fprintln(w, "  identity issue|resolve|revoke")
	fmt.Fprintln(w, "  token issue")
	fmt.Fprintln(w, "  contract load")
	fmt.Fprintln(w, "  span submit|replay|revert")
	fmt.Fprintln(w, "  federation add-peer|sync|status")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every subcommand accepts -addr (default http://127.0.0.1:7420).")
}
