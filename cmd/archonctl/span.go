package main

import (
	"encoding/json"
	"fmt"
	"io"
)

func dispatchSpan(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: archonctl span <submit|replay|revert>")
		return 2
	}
	switch args[0] {
	case "submit":
		return spanSubmit(args[1:], stdout, stderr)
	case "replay":
		return spanReplay(args[1:], stdout, stderr)
	case "revert":
		return spanRevert(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown span subcommand: %s\n", args[0])
		return 2
	}
}

func spanSubmit(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("span submit", stderr)
	token := fs.String("token", "", "bearer token")
	title := fs.String("title", "", "span title")
	payload := fs.String("payload", "{}", "span payload as a JSON object")
	contractID := fs.String("contract", "", "contract ID to evaluate against")
	workflowID := fs.String("workflow", "", "workflow ID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *token == "" || *title == "" {
		fmt.Fprintln(stderr, "archonctl: -token and -title are required")
		return 2
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(*payload), &decoded); err != nil {
		fmt.Fprintf(stderr, "archonctl: -payload is not valid JSON: %v\n", err)
		return 2
	}
	return request("POST", *addr, "/v1/spans", map[string]interface{}{
		"Token": *token, "Title": *title, "Payload": decoded, "ContractID": *contractID, "WorkflowID": *workflowID,
	}, stdout, stderr)
}

func spanReplay(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("span replay", stderr)
	token := fs.String("token", "", "bearer token")
	id := fs.String("id", "", "span ID to replay")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *token == "" || *id == "" {
		fmt.Fprintln(stderr, "archonctl: -token and -id are required")
		return 2
	}
	return request("POST", *addr, "/v1/spans/"+*id+"/replay", map[string]string{"token": *token}, stdout, stderr)
}

func spanRevert(args []string, stdout, stderr io.Writer) int {
	fs, addr := newFlagSet("span revert", stderr)
	token := fs.String("token", "", "bearer token")
	id := fs.String("id", "", "span ID to revert")
	reason := fs.String("reason", "", "reason for reverting")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *token == "" || *id == "" {
		fmt.Fprintln(stderr, "archonctl: -token and -id are required")
		return 2
	}
	return request("POST", *addr, "/v1/spans/"+*id+"/revert", map[string]string{"token": *token, "reason": *reason}, stdout, stderr)
}
