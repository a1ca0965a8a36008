// Package rules implements the begin functions for the built-in rule kinds.
package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Registry binds every built-in rule kind to its begin function.
func Registry(runner ports.CommandRunner) map[domain.RuleKind]scheduler.BeginFunc {
	return map[domain.RuleKind]scheduler.BeginFunc{
		domain.KindFileSet:       beginFileSet,
		domain.KindCopyFiles:     beginCopyFiles,
		domain.KindConcatFiles:   beginConcatFiles,
		domain.KindTemplateFiles: beginTemplateFiles,
		domain.KindShellExecute:  beginShellExecute(runner),
	}
}

// beginFileSet passes the resolved sources through as outputs. It is a
// synthetic rule used for grouping and filtering, so there is no task work.
func beginFileSet(_ context.Context, rc *scheduler.RuleContext) error {
	srcs, err := rc.SrcPaths()
	if err != nil {
		return err
	}
	rc.AppendOutputs(srcs...)
	rc.Succeed(srcs)
	return nil
}

func beginCopyFiles(_ context.Context, rc *scheduler.RuleContext) error {
	srcs, err := rc.SrcPaths()
	if err != nil {
		return err
	}

	pairs := make([]filePair, 0, len(srcs))
	for _, src := range srcs {
		dst := rc.OutPathFor(src)
		if err := ensureDir(filepath.Dir(dst)); err != nil {
			return err
		}
		rc.AppendOutputs(dst)
		pairs = append(pairs, filePair{src: src, dst: dst})
	}

	d, err := rc.RunTaskAsync(&copyFilesTask{pairs: pairs})
	if err != nil {
		return err
	}
	rc.Chain(d)
	return nil
}

func beginConcatFiles(_ context.Context, rc *scheduler.RuleContext) error {
	srcs, err := rc.SrcPaths()
	if err != nil {
		return err
	}

	name := rc.Rule().Out()
	if name == "" {
		name = rc.Rule().Name()
	}
	dst := filepath.Join(rc.OutPath(), name)
	if err := ensureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	rc.AppendOutputs(dst)

	d, err := rc.RunTaskAsync(&concatFilesTask{srcs: srcs, dst: dst})
	if err != nil {
		return err
	}
	rc.Chain(d)
	return nil
}

// beginTemplateFiles expands ${key} parameters in each source file, writing
// the results into the build-gen tree so downstream rules can consume them.
func beginTemplateFiles(_ context.Context, rc *scheduler.RuleContext) error {
	srcs, err := rc.SrcPaths()
	if err != nil {
		return err
	}

	rule := rc.Rule()
	pairs := make([]filePair, 0, len(srcs))
	for _, src := range srcs {
		dst := rc.GenPathFor(src)
		if ext := rule.NewExtension(); ext != "" {
			dst = strings.TrimSuffix(dst, filepath.Ext(dst)) + ext
		}
		if err := ensureDir(filepath.Dir(dst)); err != nil {
			return err
		}
		rc.AppendOutputs(dst)
		pairs = append(pairs, filePair{src: src, dst: dst})
	}

	d, err := rc.RunTaskAsync(&templateFilesTask{pairs: pairs, params: rule.Params()})
	if err != nil {
		return err
	}
	rc.Chain(d)
	return nil
}

// beginShellExecute runs the rule's command with the resolved source paths
// appended to the argument list. Output streams into the rule's telemetry
// vertex.
func beginShellExecute(runner ports.CommandRunner) scheduler.BeginFunc {
	return func(ctx context.Context, rc *scheduler.RuleContext) error {
		srcs, err := rc.SrcPaths()
		if err != nil {
			return err
		}
		command := rc.Rule().Command()
		if len(command) == 0 {
			return zerr.With(zerr.New("shell_execute rule has no command"),
				"rule", rc.Rule().Path())
		}

		cmd := ports.Command{
			Argv: append(command, srcs...),
			Dir:  rc.ModuleDir(),
		}
		if v := rc.Vertex(); v != nil {
			cmd.Stdout = v.Stdout()
			cmd.Stderr = v.Stderr()
		}

		d, err := rc.RunTaskAsync(&execTask{ctx: ctx, runner: runner, cmd: cmd})
		if err != nil {
			return err
		}
		rc.Chain(d)
		return nil
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerr.Wrap(err, "creating output directory")
	}
	return nil
}
