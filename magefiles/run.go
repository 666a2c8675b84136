//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed, with config/engine.toml when present.
func (Run) Testbed() error {
	args := []string{"run", "main.go"}
	if _, err := os.Stat("config/engine.toml"); err == nil {
		args = append(args, "-config", "config/engine.toml")
	}
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs every test with the race detector.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the command pipeline tests only, verbosely.
func (Run) Pipeline() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-v", "./engine/renderer/..."), withStream())
	return err
}
