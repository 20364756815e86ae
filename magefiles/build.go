//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles the GLSL shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkquad", "."), withStream())
	return err
}

func buildShaders() error {
	shaders := map[string]string{
		"shader.vert": "vert.spv",
		"shader.frag": "frag.spv",
	}
	for src, out := range shaders {
		if _, err := executeCmd("glslc", withArgs(filepath.Join(shaderDir, src), "-o", filepath.Join(shaderDir, out)), withStream()); err != nil {
			return err
		}
	}
	return nil
}
