//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the quad.
func (Run) Quad() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run quad...")
	_, err := executeCmd("go", withArgs("run", "."), withStream())
	return err
}

// Same as Quad with the validation layer enabled.
func (Run) Validation() error {
	if err := buildShaders(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("run", ".", "-validation"), withStream())
	return err
}
