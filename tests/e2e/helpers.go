package main

import (
	"fmt"
	"os/exec"
)

// findArcadeBinary finds the arcade binary under test.
// It relies on the Makefile setting the PATH to include the local ./bin directory.
func findArcadeBinary() (string, error) {
	path, err := exec.LookPath("arcade")
	if err != nil {
		return "", fmt.Errorf("could not find 'arcade' binary in PATH. Ensure 'make test-e2e' is used")
	}
	return path, nil
}
