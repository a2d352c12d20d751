package main

import (
	"fmt"
	"io"
	"strings"
)

func dispatchToken(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "issue" {
		fmt.Fprintln(stderr, "usage: archonctl token issue")
		return 2
	}
	fs, addr := newFlagSet("token issue", stderr)
	identityID := fs.String("identity", "", "identity ID the token is bound to")
	tenantID := fs.String("tenant", "", "tenant ID the token is scoped to")
	scopes := fs.String("scopes", "", "comma-separated scopes")
	ttl := fs.Int("ttl-seconds", 3600, "token lifetime in seconds")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *identityID == "" || *tenantID == "" {
		fmt.Fprintln(stderr, "archonctl: -identity and -tenant are required")
		return 2
	}
	var scopeList []string
	if *scopes != "" {
		scopeList = strings.Split(*scopes, ",")
	}
	return request("POST", *addr, "/v1/tokens", map[string]interface{}{
		"identity_id": *identityID, "tenant_id": *tenantID, "scopes": scopeList, "ttl_seconds": *ttl,
	}, stdout, stderr)
}
