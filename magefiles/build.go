//go:build mage

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every package in the module.
func (Build) Lib() error {
	if _, err := executeCmd("go", withArgs("build", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Compiles every GLSL source under shaders/ to SPIR-V next to it.
func (Build) Shaders() error {
	return filepath.Walk("shaders", func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".vert" && ext != ".frag" && ext != ".comp" {
			return nil
		}
		out := strings.TrimSuffix(path, ext) + ext + ".spv"
		if _, err := executeCmd("glslc", withArgs(path, "-o", out), withStream()); err != nil {
			return err
		}
		return nil
	})
}
