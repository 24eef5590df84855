package main

import (
	"fmt"
	"io"

	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
)

// printCalls writes one line per operation and outcome with the number of gateway calls.
func printCalls(w io.Writer, counts []gateway.CallCount) {
	fmt.Fprintln(w, " Operation         Outcome     Calls ")
	fmt.Fprintln(w, "-------------------------------------")
	for _, c := range counts {
		fmt.Fprintf(w, "%10s %15s %9.0f\n", c.Operation, c.Outcome, c.Count)
	}
}
