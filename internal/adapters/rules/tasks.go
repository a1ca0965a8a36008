package rules

import (
	"context"
	"io"
	"os"

	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

type filePair struct {
	src string
	dst string
}

// copyFilesTask copies each source to its destination, preserving the file
// mode.
type copyFilesTask struct {
	pairs []filePair
}

func (t *copyFilesTask) Execute() (any, error) {
	for _, p := range t.pairs {
		if err := copyFile(p.src, p.dst); err != nil {
			return nil, err
		}
	}
	return len(t.pairs), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "opening source"), "src", src)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return zerr.With(zerr.Wrap(err, "stating source"), "src", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return zerr.With(zerr.Wrap(err, "creating destination"), "dst", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return zerr.With(zerr.With(zerr.Wrap(err, "copying file"), "src", src), "dst", dst)
	}
	if err := out.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "closing destination"), "dst", dst)
	}
	return nil
}

// concatFilesTask concatenates the sources into dst in declaration order.
type concatFilesTask struct {
	srcs []string
	dst  string
}

func (t *concatFilesTask) Execute() (any, error) {
	out, err := os.Create(t.dst)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "creating output"), "dst", t.dst)
	}
	for _, src := range t.srcs {
		in, err := os.Open(src)
		if err != nil {
			_ = out.Close()
			return nil, zerr.With(zerr.Wrap(err, "opening source"), "src", src)
		}
		_, err = io.Copy(out, in)
		_ = in.Close()
		if err != nil {
			_ = out.Close()
			return nil, zerr.With(zerr.Wrap(err, "concatenating"), "src", src)
		}
	}
	if err := out.Close(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "closing output"), "dst", t.dst)
	}
	return t.dst, nil
}

// templateFilesTask expands ${key} references in each source against the
// params map. A reference with no matching param fails the task.
type templateFilesTask struct {
	pairs  []filePair
	params map[string]string
}

func (t *templateFilesTask) Execute() (any, error) {
	for _, p := range t.pairs {
		raw, err := os.ReadFile(p.src)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "reading template"), "src", p.src)
		}
		expanded, err := expandParams(string(raw), t.params)
		if err != nil {
			return nil, zerr.With(err, "src", p.src)
		}
		if err := os.WriteFile(p.dst, []byte(expanded), 0o644); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "writing result"), "dst", p.dst)
		}
	}
	return len(t.pairs), nil
}

func expandParams(s string, params map[string]string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		if v, ok := params[key]; ok {
			return v
		}
		missing = append(missing, key)
		return ""
	})
	if len(missing) > 0 {
		return "", zerr.With(zerr.New("template references undefined params"),
			"missing", missing)
	}
	return expanded, nil
}

// execTask runs one external command through the command runner. The context
// is captured at begin time because tasks execute with no arguments,
// possibly on a pool goroutine.
type execTask struct {
	ctx    context.Context
	runner ports.CommandRunner
	cmd    ports.Command
}

func (t *execTask) Execute() (any, error) {
	if err := t.runner.Run(t.ctx, t.cmd); err != nil {
		return nil, err
	}
	return true, nil
}
