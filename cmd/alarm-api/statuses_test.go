package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/domain"
)

func TestStatusesCommand(t *testing.T) {
	var out bytes.Buffer
	statusesCmd.SetOut(&out)
	t.Cleanup(func() { statusesJSON = false })

	require.NoError(t, statusesCmd.RunE(statusesCmd, nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(domain.DefaultStatuses)+2)
	assert.Contains(t, out.String(), "intrusion")

	out.Reset()
	statusesJSON = true
	require.NoError(t, statusesCmd.RunE(statusesCmd, nil))
	var defs []domain.StatusDefinition
	require.NoError(t, json.Unmarshal(out.Bytes(), &defs))
	assert.Len(t, defs, len(domain.DefaultStatuses))
}
