// Package shell provides the command runner adapter built on os/exec.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// ErrCommandFailed is returned when a command exits non-zero or cannot be
// started. The exit code is attached as metadata.
var ErrCommandFailed = zerr.New("command failed")

// Runner implements ports.CommandRunner using os/exec.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a shell command runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes the command, streaming output into the writers the command
// carries. The command environment is the process environment layered with
// cmd.Env entries, later entries winning.
func (r *Runner) Run(ctx context.Context, cmd ports.Command) error {
	if len(cmd.Argv) == 0 {
		return zerr.With(ErrCommandFailed, "reason", "empty argv")
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...) //nolint:gosec // rule-declared command
	c.Dir = cmd.Dir
	c.Env = mergeEnvironment(os.Environ(), cmd.Env)
	c.Stdout = orDiscard(cmd.Stdout)
	c.Stderr = orDiscard(cmd.Stderr)

	if r.logger != nil {
		r.logger.Info("running " + strings.Join(cmd.Argv, " "))
	}

	if err := c.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, "command failed"),
			"command", cmd.Argv[0]), "exit_code", exitCode)
	}
	return nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// mergeEnvironment layers extra entries over the base environment, replacing
// duplicate keys.
func mergeEnvironment(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base)+len(extra))
	var order []string
	apply := func(entries []string) {
		for _, entry := range entries {
			k, v, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if _, seen := envMap[k]; !seen {
				order = append(order, k)
			}
			envMap[k] = v
		}
	}
	apply(base)
	apply(extra)

	merged := make([]string, 0, len(order))
	for _, k := range order {
		merged = append(merged, k+"="+envMap[k])
	}
	return merged
}
