package domain

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// ModuleResolver resolves possibly-relative module references to absolute
// module paths and loads modules on demand. Implementations must be
// deterministic and idempotent per absolute path; the project memoizes
// loaded modules so a path is never loaded twice.
type ModuleResolver interface {
	// ResolveModulePath turns a module reference into the absolute path used
	// as the project's cache key. workingPath is the directory of the
	// requesting module, or "" when the reference is absolute.
	ResolveModulePath(path, workingPath string) (string, error)

	// LoadModule loads the module at an absolute path previously returned by
	// ResolveModulePath. It returns ErrModuleNotFound if no module exists
	// there.
	LoadModule(fullPath string) (*Module, error)

	// CanResolveLocal reports whether a bare local reference such as ":foo"
	// can be resolved without a requesting module, by treating the current
	// directory as the module path.
	CanResolveLocal() bool
}

// Project is a keyed collection of modules plus a resolver for lazily
// loading more. Once a build starts the project should be treated as
// immutable apart from resolver-driven module loads.
type Project struct {
	name     string
	resolver ModuleResolver
	modules  map[string]*Module
}

// ProjectOption configures a project.
type ProjectOption func(*Project)

// WithName sets a human-readable project name used for logging.
func WithName(name string) ProjectOption {
	return func(p *Project) { p.name = name }
}

// WithResolver sets the module resolver used for lazy loads.
func WithResolver(r ModuleResolver) ProjectOption {
	return func(p *Project) { p.resolver = r }
}

// WithModules pre-populates the project. Duplicate module paths panic here
// rather than error because options run during construction; use AddModule
// for fallible insertion.
func WithModules(modules ...*Module) ProjectOption {
	return func(p *Project) {
		for _, m := range modules {
			if err := p.AddModule(m); err != nil {
				panic(err)
			}
		}
	}
}

// NewProject creates a project. Without WithResolver a StaticModuleResolver
// over the pre-added modules is used.
func NewProject(opts ...ProjectOption) *Project {
	p := &Project{
		name:    "project",
		modules: make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = NewStaticModuleResolver()
	}
	return p
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// AddModule adds a module, keyed by its path.
func (p *Project) AddModule(m *Module) error {
	if _, exists := p.modules[m.Path()]; exists {
		return zerr.With(ErrDuplicateModule, "module", m.Path())
	}
	p.modules[m.Path()] = m
	return nil
}

// Module looks up an already-loaded module by path.
func (p *Project) Module(path string) (*Module, bool) {
	m, ok := p.modules[path]
	return m, ok
}

// ResolveRule resolves a rule path to its rule, loading the owning module
// through the resolver if it has not been seen yet. requestingModule scopes
// local (":foo") and relative references; it may be nil for absolute paths.
func (p *Project) ResolveRule(rulePath string, requestingModule *Module) (*Rule, error) {
	modulePath, ruleName, err := SplitRulePath(rulePath)
	if err != nil {
		return nil, err
	}

	if modulePath == "" && requestingModule == nil {
		if !p.resolver.CanResolveLocal() {
			return nil, zerr.With(zerr.With(ErrRuleNotFound, "path", rulePath),
				"reason", "local rule reference with no requesting module")
		}
		modulePath = "."
	}

	module := requestingModule
	if modulePath != "" {
		// A module's path is its directory, so relative references resolve
		// against the path itself.
		workingPath := ""
		if requestingModule != nil {
			workingPath = requestingModule.Path()
		}
		fullPath, err := p.resolver.ResolveModulePath(modulePath, workingPath)
		if err != nil {
			return nil, err
		}

		var ok bool
		module, ok = p.modules[fullPath]
		if !ok {
			// Not yet loaded; pull it in through the resolver and memoize.
			module, err = p.resolver.LoadModule(fullPath)
			if err != nil {
				return nil, zerr.With(err, "reference", modulePath)
			}
			if err := p.AddModule(module); err != nil {
				return nil, err
			}
		}
	}

	rule, ok := module.Rule(ruleName)
	if !ok {
		return nil, zerr.With(zerr.With(ErrRuleNotFound, "path", rulePath), "module", module.Path())
	}
	return rule, nil
}

// StaticModuleResolver resolves from a fixed set of modules. It is the
// default resolver and the one used by most tests.
type StaticModuleResolver struct {
	modules map[string]*Module
}

// NewStaticModuleResolver creates a resolver over the given modules.
func NewStaticModuleResolver(modules ...*Module) *StaticModuleResolver {
	r := &StaticModuleResolver{modules: make(map[string]*Module, len(modules))}
	for _, m := range modules {
		r.modules[filepath.Clean(m.Path())] = m
	}
	return r
}

// ResolveModulePath joins working and reference paths and normalizes.
func (r *StaticModuleResolver) ResolveModulePath(path, workingPath string) (string, error) {
	if workingPath != "" {
		path = filepath.Join(workingPath, path)
	}
	return filepath.Clean(path), nil
}

// LoadModule returns the statically-known module, or ErrModuleNotFound.
func (r *StaticModuleResolver) LoadModule(fullPath string) (*Module, error) {
	m, ok := r.modules[filepath.Clean(fullPath)]
	if !ok {
		return nil, zerr.With(ErrModuleNotFound, "path", fullPath)
	}
	return m, nil
}

// CanResolveLocal always reports false; static resolution has no notion of
// a current directory.
func (r *StaticModuleResolver) CanResolveLocal() bool { return false }
