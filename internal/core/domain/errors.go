package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidName is returned when a rule name or rule path is malformed.
	ErrInvalidName = zerr.New("invalid name")

	// ErrDuplicateRule is returned when adding a rule whose name already exists in a module.
	ErrDuplicateRule = zerr.New("rule already defined")

	// ErrDuplicateModule is returned when adding a module whose path already exists in a project.
	ErrDuplicateModule = zerr.New("module already defined")

	// ErrRuleReparented is returned when a rule is added to a second module.
	ErrRuleReparented = zerr.New("rule already has a parent module")

	// ErrRuleNotFound is returned when a rule path does not resolve to a rule.
	ErrRuleNotFound = zerr.New("rule not found")

	// ErrModuleNotFound is returned when a module path cannot be resolved or loaded.
	ErrModuleNotFound = zerr.New("module not found")

	// ErrCycleDetected is returned when the rule graph contains a dependency cycle.
	ErrCycleDetected = zerr.New("cycle detected in rule graph")

	// ErrDependencyFailed marks a rule that was failed because a dependency failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrRuleNotExecuted is returned when a rule's outputs are requested before it has run.
	ErrRuleNotExecuted = zerr.New("source rule not yet executed")

	// ErrBuildFailed is the aggregate failure reported when any rule in a build fails.
	ErrBuildFailed = zerr.New("build failed")

	// ErrNoTargetsSpecified is returned when a build is requested without targets.
	ErrNoTargetsSpecified = zerr.New("no targets specified")
)
