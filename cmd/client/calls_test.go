package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
)

func TestPrintCalls(t *testing.T) {
	var out strings.Builder
	printCalls(&out, []gateway.CallCount{
		{Operation: "create", Outcome: "success", Count: 1000},
		{Operation: "delete", Outcome: "rejected", Count: 2},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, []string{"create", "success", "1000"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"delete", "rejected", "2"}, strings.Fields(lines[3]))
}
