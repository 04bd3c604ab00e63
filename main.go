// The main package for the rentalwatch executable.
package main

import (
	"rentalwatch/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
