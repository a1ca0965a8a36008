package ports

import (
	"context"
	"io"
)

// Command describes one external command invocation.
type Command struct {
	// Argv is the program and its arguments. Must be non-empty.
	Argv []string

	// Dir is the working directory. Empty means the process's own.
	Dir string

	// Env is extra environment in "KEY=VALUE" form, layered over the
	// process environment.
	Env []string

	// Stdout and Stderr receive the command's output streams. Either may
	// be nil to discard.
	Stdout io.Writer
	Stderr io.Writer
}

// CommandRunner runs external commands on behalf of rules.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type CommandRunner interface {
	// Run executes the command and blocks until it exits. A non-zero exit
	// status is returned as an error carrying the exit code.
	Run(ctx context.Context, cmd Command) error
}
