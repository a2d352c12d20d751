package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunHelpPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"archon-node", "help"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "archon-node")
}

func TestRunUnknownCommandFailsWithConfigExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"archon-node", "bogus"}, &stdout, &stderr)
	assert.Equal(t, exitFatalConfig, code)
	assert.True(t, strings.Contains(stderr.String(), "unknown command"))
}

func TestRunDoctorReportsConfigState(t *testing.T) {
	t.Setenv("ARCHON_NODE_SIGNING_SEED", "")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"archon-node", "doctor"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "node_signing_seed")
}
