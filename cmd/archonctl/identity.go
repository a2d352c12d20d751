package main

import (
	"fmt"
	"io"
)

func dispatchIdentity(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: archonctl identity <issue|resolve|revoke>")
		return 2
	}
	switch args[0] {
	case "issue":
		return identityIssue(args[1:], stdout, stderr)
	case "resolve":
		return identityResolve(args[1:], stdout, stderr)
	case "revoke":
		return identityRevoke(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown identity subcommand: %s\n", args[0])
		return 2
	}
}

func identityIssue(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("identity issue", stderr)
	kind := fs.String("kind", "person", "identity kind: person, agent, node, app, tenant, contract, receipt")
	handle := fs.String("handle", "", "display handle, unique within kind")
	tenantID := fs.String("tenant", "", "tenant ID to bind to, optional")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *handle == "" {
		fmt.Fprintln(stderr, "archonctl: -handle is required")
		return 2
	}
	return request("POST", *addr, "/v1/identities", map[string]string{"kind": *kind, "handle": *handle, "tenant_id": *tenantID}, stdout, stderr)
}

func identityResolve(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("identity resolve", stderr)
	id := fs.String("id", "", "identity ID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" {
		fmt.Fprintln(stderr, "archonctl: -id is required")
		return 2
	}
	return request("GET", *addr, "/v1/identities/"+*id, nil, stdout, stderr)
}

func identityRevoke(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("identity revoke", stderr)
	id := fs.String("id", "", "identity ID to revoke")
	by := fs.String("by", "", "identity ID performing the revocation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" {
		fmt.Fprintln(stderr, "archonctl: -id is required")
		return 2
	}
	return request("POST", *addr, "/v1/identities/"+*id+"/revoke", map[string]string{"by": *by}, stdout, stderr)
}
