package main

import (
	"fmt"
	"io"
	"os"
)

func dispatchContract(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "load" {
		fmt.Fprintln(stderr, "usage: archonctl contract load")
		return 2
	}
	fs, addr := newFlagSet("contract load", stderr)
	tenantID := fs.String("tenant", "", "tenant ID the contract belongs to")
	file := fs.String("file", "", "path to the contract's surface-syntax file")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *tenantID == "" || *file == "" {
		fmt.Fprintln(stderr, "archonctl: -tenant and -file are required")
		return 2
	}
	body, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(stderr, "archonctl: failed to read %s: %v\n", *file, err)
		return 2
	}
	return request("POST", *addr, "/v1/contracts", map[string]string{"tenant_id": *tenantID, "body": string(body)}, stdout, stderr)
}
