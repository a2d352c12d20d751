package main

import (
	"fmt"
	"io"
)

func dispatchFederation(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: archonctl federation <add-peer|sync|status>")
		return 2
	}
	switch args[0] {
	case "add-peer":
		return federationAddPeer(args[1:], stdout, stderr)
	case "sync":
		return federationSync(args[1:], stdout, stderr)
	case "status":
		return federationStatus(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown federation subcommand: %s\n", args[0])
		return 2
	}
}

func federationAddPeer(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("federation add-peer", stderr)
	id := fs.String("id", "", "peer node identity ID")
	tenantID := fs.String("tenant", "", "local tenant this peer exchanges spans for")
	address := fs.String("address", "", "peer's mesh address")
	trust := fs.String("trust", "read", "trust level: none, read, write, mirror")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" || *tenantID == "" {
		fmt.Fprintln(stderr, "archonctl: -id and -tenant are required")
		return 2
	}
	return request("POST", *addr, "/v1/federation/peers", map[string]string{
		"ID": *id, "TenantID": *tenantID, "Address": *address, "Trust": *trust,
	}, stdout, stderr)
}

func federationSync(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("federation sync", stderr)
	id := fs.String("id", "", "peer node identity ID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" {
		fmt.Fprintln(stderr, "archonctl: -id is required")
		return 2
	}
	return request("POST", *addr, "/v1/federation/peers/"+*id+"/sync", nil, stdout, stderr)
}

func federationStatus(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("federation status", stderr)
	id := fs.String("id", "", "peer node identity ID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" {
		fmt.Fprintln(stderr, "archonctl: -id is required")
		return 2
	}
	return request("GET", *addr, "/v1/federation/peers/"+*id, nil, stdout, stderr)
}
