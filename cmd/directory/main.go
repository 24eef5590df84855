package main

import (
	"os"
)

// Usage example on the command line:
// > go run . list
// > go run . create --nom Diop --prenom Fatou --telephone "77 123 45 67"
// > go run . search --prenom fatou
// > go run . delete 3 --yes
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
