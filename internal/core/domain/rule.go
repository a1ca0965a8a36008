// Package domain contains the core model of the build system: rules, the
// modules and projects that namespace them, and the dependency graph used
// to order their execution.
package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// RuleKind identifies the behavior of a rule. The set of kinds is closed;
// each kind pairs the immutable rule data here with a begin implementation
// registered with the execution engine.
type RuleKind string

const (
	// KindFileSet passes its resolved sources through as outputs.
	KindFileSet RuleKind = "file_set"
	// KindCopyFiles copies its sources into the build output tree.
	KindCopyFiles RuleKind = "copy_files"
	// KindConcatFiles concatenates its sources into a single output file.
	KindConcatFiles RuleKind = "concat_files"
	// KindTemplateFiles expands ${key} parameters in its sources into the
	// generated-code tree.
	KindTemplateFiles RuleKind = "template_files"
	// KindShellExecute runs a command after its dependencies complete.
	KindShellExecute RuleKind = "shell_execute"
)

// RuleOptions carries the optional, kind-specific parts of a rule
// declaration.
type RuleOptions struct {
	// Srcs are source references: literal file paths relative to the
	// declaring module, or rule paths whose outputs become sources.
	Srcs []string
	// Deps are execution-order-only dependencies; they must be rule paths.
	Deps []string
	// SrcFilter is a glob restricting which resolved source files are kept.
	SrcFilter string
	// Out overrides the output file name for concat_files.
	Out string
	// Command is the argv for shell_execute.
	Command []string
	// Params are the substitution values for template_files.
	Params map[string]string
	// NewExtension replaces (or adds) the output file extension for
	// template_files, with a leading dot.
	NewExtension string
}

// Rule is an immutable unit of buildable work. Rules are attached to exactly
// one module, which assigns their full path; all mutation happens before the
// rule enters a graph.
type Rule struct {
	name      string
	kind      RuleKind
	path      string
	parent    *Module
	srcs      []string
	deps      []string
	srcFilter string
	out          string
	command      []string
	params       map[string]string
	newExtension string

	// Union of srcs and deps, deduplicated.
	dependentPaths map[string]struct{}
}

// NewRule creates a rule of the given kind. The name must be non-empty,
// contain no whitespace, and not start with ':'. Deps must all be rule
// paths.
func NewRule(kind RuleKind, name string, opts RuleOptions) (*Rule, error) {
	if err := ValidateRuleName(name); err != nil {
		return nil, err
	}
	if err := ValidatePaths(opts.Srcs, false); err != nil {
		return nil, zerr.With(err, "rule", name)
	}
	if err := ValidatePaths(opts.Deps, true); err != nil {
		return nil, zerr.With(err, "rule", name)
	}

	r := &Rule{
		name:      name,
		kind:      kind,
		path:      ":" + name,
		srcs:      append([]string(nil), opts.Srcs...),
		deps:      append([]string(nil), opts.Deps...),
		srcFilter: opts.SrcFilter,
		out:          opts.Out,
		command:      append([]string(nil), opts.Command...),
		params:       opts.Params,
		newExtension: opts.NewExtension,

		dependentPaths: make(map[string]struct{}, len(opts.Srcs)+len(opts.Deps)),
	}
	for _, src := range r.srcs {
		r.dependentPaths[src] = struct{}{}
	}
	for _, dep := range r.deps {
		r.dependentPaths[dep] = struct{}{}
	}
	return r, nil
}

// Name returns the module-local rule name.
func (r *Rule) Name() string { return r.name }

// Kind returns the rule's behavior kind.
func (r *Rule) Kind() RuleKind { return r.kind }

// Path returns the full rule path ("module-path:name"). Before the rule is
// attached to a module the path is just ":name".
func (r *Rule) Path() string { return r.path }

// ParentModule returns the module this rule belongs to, or nil if it has
// not been attached yet.
func (r *Rule) ParentModule() *Module { return r.parent }

// Srcs returns the declared source references.
func (r *Rule) Srcs() []string { return append([]string(nil), r.srcs...) }

// Deps returns the declared rule-only dependencies.
func (r *Rule) Deps() []string { return append([]string(nil), r.deps...) }

// SrcFilter returns the source filter glob, or "" if none was declared.
func (r *Rule) SrcFilter() string { return r.srcFilter }

// Out returns the declared output name for concat_files rules.
func (r *Rule) Out() string { return r.out }

// Command returns the argv for shell_execute rules.
func (r *Rule) Command() []string { return append([]string(nil), r.command...) }

// Params returns the substitution values for template_files rules.
func (r *Rule) Params() map[string]string { return r.params }

// NewExtension returns the replacement output extension for template_files
// rules, or "" to keep source extensions.
func (r *Rule) NewExtension() string { return r.newExtension }

// DependentPaths returns the deduplicated union of srcs and deps, sorted
// for deterministic iteration. A path appearing in both counts once.
func (r *Rule) DependentPaths() []string {
	paths := make([]string, 0, len(r.dependentPaths))
	for p := range r.dependentPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// setParentModule attaches the rule to its module and assigns the full rule
// path. A rule may be attached exactly once.
func (r *Rule) setParentModule(m *Module) error {
	if r.parent != nil {
		return zerr.With(zerr.With(ErrRuleReparented, "rule", r.name), "module", r.parent.Path())
	}
	r.parent = m
	r.path = m.Path() + ":" + r.name
	return nil
}
