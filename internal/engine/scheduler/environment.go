// Package scheduler implements the rule execution engine: a pump loop that
// walks the rule sequence in dependency order, dispatches rule work to a
// task executor, and propagates failures to dependent rules.
package scheduler

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Directory names for generated artifacts, created under the project root.
const (
	outDirName = "build-out"
	genDirName = "build-gen"
)

// Environment locates a build's directories on disk. All rule source and
// output paths are resolved against it.
type Environment struct {
	rootDir string
}

// NewEnvironment creates an environment rooted at rootDir. The root is not
// checked; use OpenEnvironment when it must already exist.
func NewEnvironment(rootDir string) *Environment {
	return &Environment{rootDir: filepath.Clean(rootDir)}
}

// OpenEnvironment creates an environment rooted at rootDir, verifying that
// the root exists and is a directory.
func OpenEnvironment(rootDir string) (*Environment, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "build root not accessible"), "root", rootDir)
	}
	if !info.IsDir() {
		return nil, zerr.With(zerr.New("build root is not a directory"), "root", rootDir)
	}
	return NewEnvironment(rootDir), nil
}

// RootDir returns the project root.
func (e *Environment) RootDir() string {
	return e.rootDir
}

// ModuleDir returns the source directory of a module.
func (e *Environment) ModuleDir(modulePath string) string {
	return filepath.Join(e.rootDir, modulePath)
}

// OutDir returns the output directory for a module, where rule outputs that
// are final artifacts land.
func (e *Environment) OutDir(modulePath string) string {
	return filepath.Join(e.rootDir, outDirName, modulePath)
}

// GenDir returns the generated-files directory for a module, where rule
// outputs that feed other rules land.
func (e *Environment) GenDir(modulePath string) string {
	return filepath.Join(e.rootDir, genDirName, modulePath)
}

// OutRoot returns the root of the output tree.
func (e *Environment) OutRoot() string {
	return filepath.Join(e.rootDir, outDirName)
}

// GenRoot returns the root of the generated-files tree.
func (e *Environment) GenRoot() string {
	return filepath.Join(e.rootDir, genDirName)
}
