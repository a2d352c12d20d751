package main

import (
	"fmt"
	"io"
)

func dispatchTenant(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: archonctl tenant <create|assign>")
		return 2
	}
	switch args[0] {
	case "create":
		return tenantCreate(args[1:], stdout, stderr)
	case "assign":
		return tenantAssign(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown tenant subcommand: %s\n", args[0])
		return 2
	}
}

func tenantCreate(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("tenant create", stderr)
	owner := fs.String("owner", "", "owning identity ID")
	name := fs.String("name", "", "tenant name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(stderr, "archonctl: -name is required")
		return 2
	}
	return request("POST", *addr, "/v1/tenants", map[string]string{"owner_id": *owner, "name": *name}, stdout, stderr)
}

func tenantAssign(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("tenant assign", stderr)
	tenantID := fs.String("tenant", "", "tenant ID")
	identityID := fs.String("identity", "", "identity ID to assign")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *tenantID == "" || *identityID == "" {
		fmt.Fprintln(stderr, "archonctl: -tenant and -identity are required")
		return 2
	}
	return request("POST", *addr, "/v1/tenants/"+*tenantID+"/members", map[string]string{"identity_id": *identityID}, stdout, stderr)
}
