//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test runs the full test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Build compiles the buildinfo CLI into ./bin.
func Build() error {
	mg.Deps(Vet)
	return sh.RunV("go", "build", "-o", "bin/buildinfo", "./cmd/buildinfo")
}
