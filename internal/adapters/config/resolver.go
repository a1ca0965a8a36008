package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// FileModuleResolver implements domain.ModuleResolver over a project tree on
// disk. Module paths are directories relative to the project root, each
// containing a module file.
type FileModuleResolver struct {
	rootDir  string
	fileName string
}

// NewFileModuleResolver creates a resolver rooted at rootDir, loading module
// files named fileName (DefaultFileName when empty).
func NewFileModuleResolver(rootDir, fileName string) *FileModuleResolver {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &FileModuleResolver{
		rootDir:  filepath.Clean(rootDir),
		fileName: fileName,
	}
}

// ResolveModulePath normalizes a module reference against the directory of
// the requesting module.
func (r *FileModuleResolver) ResolveModulePath(path, workingPath string) (string, error) {
	if workingPath != "" && !filepath.IsAbs(path) {
		path = filepath.Join(workingPath, path)
	}
	cleaned := filepath.Clean(path)
	if !filepath.IsLocal(cleaned) && cleaned != "." {
		return "", zerr.With(zerr.New("module path escapes the project root"), "path", path)
	}
	return cleaned, nil
}

// LoadModule reads the module file in the directory named by fullPath.
func (r *FileModuleResolver) LoadModule(fullPath string) (*domain.Module, error) {
	filePath := filepath.Join(r.rootDir, fullPath, r.fileName)
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.With(domain.ErrModuleNotFound, "path", fullPath), "file", filePath)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to stat module file"), "file", filePath)
	}
	return Load(filePath, fullPath)
}

// CanResolveLocal reports true: a bare ":rule" reference resolves against
// the project root module.
func (r *FileModuleResolver) CanResolveLocal() bool { return true }
