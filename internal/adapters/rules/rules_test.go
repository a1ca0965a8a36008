package rules_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/rules"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/executor"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// runBuild executes target in a single-module project rooted at root and
// returns the finished build context.
func runBuild(t *testing.T, root string, runner ports.CommandRunner, target string, ruleList ...*domain.Rule) (*scheduler.BuildContext, bool) {
	t.Helper()
	m, err := domain.NewModule("m", ruleList...)
	require.NoError(t, err)
	p := domain.NewProject(domain.WithModules(m))

	bc := scheduler.NewBuildContext(
		scheduler.NewEnvironment(root), p,
		executor.NewInProcess(), nil, nil, nil,
		rules.Registry(runner),
		scheduler.Options{},
	)
	ok, err := bc.ExecuteSync(context.Background(), []string{target})
	require.NoError(t, err)
	require.NoError(t, bc.Close(true))
	return bc, ok
}

func mustRule(t *testing.T, kind domain.RuleKind, name string, opts domain.RuleOptions) *domain.Rule {
	t.Helper()
	r, err := domain.NewRule(kind, name, opts)
	require.NoError(t, err)
	return r
}

func TestFileSet_FiltersEnumeratedSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "src", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "m", "src", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "m", "src", "readme.md"), "nope")

	bc, ok := runBuild(t, root, nil, "m:texts",
		mustRule(t, domain.KindFileSet, "texts", domain.RuleOptions{
			Srcs:      []string{"src"},
			SrcFilter: "*.txt",
		}),
	)
	require.True(t, ok)

	res := bc.Results()["m:texts"]
	require.Equal(t, domain.StatusSucceeded, res.Status)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "m", "src", "a.txt"),
		filepath.Join(root, "m", "src", "b.txt"),
	}, res.Outputs)
}

func TestCopyFiles_PreservesLayoutAndMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "bin", "run.sh"), "#!/bin/sh\n")
	require.NoError(t, os.Chmod(filepath.Join(root, "m", "bin", "run.sh"), 0o755))
	writeFile(t, filepath.Join(root, "m", "data", "cfg.ini"), "k=v\n")

	bc, ok := runBuild(t, root, nil, "m:stage",
		mustRule(t, domain.KindCopyFiles, "stage", domain.RuleOptions{
			Srcs: []string{"bin/run.sh", "data/cfg.ini"},
		}),
	)
	require.True(t, ok)

	res := bc.Results()["m:stage"]
	require.Equal(t, domain.StatusSucceeded, res.Status)

	script := filepath.Join(root, "build-out", "m", "bin", "run.sh")
	cfg := filepath.Join(root, "build-out", "m", "data", "cfg.ini")
	assert.Equal(t, []string{script, cfg}, res.Outputs)
	assert.Equal(t, "#!/bin/sh\n", readFile(t, script))
	assert.Equal(t, "k=v\n", readFile(t, cfg))

	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestConcatFiles_JoinsInDeclarationOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "head.txt"), "head\n")
	writeFile(t, filepath.Join(root, "m", "tail.txt"), "tail\n")

	bc, ok := runBuild(t, root, nil, "m:bundle",
		mustRule(t, domain.KindConcatFiles, "bundle", domain.RuleOptions{
			Srcs: []string{"head.txt", "tail.txt"},
			Out:  "bundle.txt",
		}),
	)
	require.True(t, ok)

	out := filepath.Join(root, "build-out", "m", "bundle.txt")
	res := bc.Results()["m:bundle"]
	assert.Equal(t, []string{out}, res.Outputs)
	assert.Equal(t, "head\ntail\n", readFile(t, out))
}

func TestConcatFiles_DefaultsOutputToRuleName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "only.txt"), "x")

	bc, ok := runBuild(t, root, nil, "m:merged",
		mustRule(t, domain.KindConcatFiles, "merged", domain.RuleOptions{
			Srcs: []string{"only.txt"},
		}),
	)
	require.True(t, ok)

	out := filepath.Join(root, "build-out", "m", "merged")
	assert.Equal(t, []string{out}, bc.Results()["m:merged"].Outputs)
}

func TestConcatFiles_ConsumesRuleOutputs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "parts", "1.txt"), "one\n")
	writeFile(t, filepath.Join(root, "m", "parts", "2.txt"), "two\n")

	bc, ok := runBuild(t, root, nil, "m:all",
		mustRule(t, domain.KindFileSet, "parts", domain.RuleOptions{
			Srcs:      []string{"parts"},
			SrcFilter: "*.txt",
		}),
		mustRule(t, domain.KindConcatFiles, "all", domain.RuleOptions{
			Srcs: []string{":parts"},
			Out:  "all.txt",
		}),
	)
	require.True(t, ok)

	out := filepath.Join(root, "build-out", "m", "all.txt")
	assert.Equal(t, "one\ntwo\n", readFile(t, out))
}

func TestTemplateFiles_ExpandsParamsAndExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "greeting.tmpl"), "hello ${name} from ${project}\n")

	bc, ok := runBuild(t, root, nil, "m:greet",
		mustRule(t, domain.KindTemplateFiles, "greet", domain.RuleOptions{
			Srcs:         []string{"greeting.tmpl"},
			Params:       map[string]string{"name": "world", "project": "forge"},
			NewExtension: ".txt",
		}),
	)
	require.True(t, ok)

	out := filepath.Join(root, "build-gen", "m", "greeting.txt")
	res := bc.Results()["m:greet"]
	assert.Equal(t, []string{out}, res.Outputs)
	assert.Equal(t, "hello world from forge\n", readFile(t, out))
}

func TestTemplateFiles_MissingParamFailsRule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "greeting.tmpl"), "hello ${name}\n")

	bc, ok := runBuild(t, root, nil, "m:greet",
		mustRule(t, domain.KindTemplateFiles, "greet", domain.RuleOptions{
			Srcs:   []string{"greeting.tmpl"},
			Params: map[string]string{},
		}),
	)
	require.False(t, ok)

	res := bc.Results()["m:greet"]
	require.Equal(t, domain.StatusFailed, res.Status)
	require.Error(t, res.Err)
	assert.ErrorContains(t, res.Err, "undefined params")
}

func TestShellExecute_AppendsSourcesToCommand(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m", "in.txt"), "payload")

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockCommandRunner(ctrl)

	var got ports.Command
	runner.EXPECT().
		Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmd ports.Command) error {
			got = cmd
			return nil
		})

	_, ok := runBuild(t, root, runner, "m:compile",
		mustRule(t, domain.KindShellExecute, "compile", domain.RuleOptions{
			Srcs:    []string{"in.txt"},
			Command: []string{"compiler", "-o", "out.bin"},
		}),
	)
	require.True(t, ok)

	assert.Equal(t, []string{
		"compiler", "-o", "out.bin",
		filepath.Join(root, "m", "in.txt"),
	}, got.Argv)
	assert.Equal(t, filepath.Join(root, "m"), got.Dir)
}

func TestShellExecute_FailureFailsRule(t *testing.T) {
	root := t.TempDir()

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockCommandRunner(ctrl)
	boom := zerr.New("compiler exploded")
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(boom)

	bc, ok := runBuild(t, root, runner, "m:compile",
		mustRule(t, domain.KindShellExecute, "compile", domain.RuleOptions{
			Command: []string{"compiler"},
		}),
	)
	require.False(t, ok)

	res := bc.Results()["m:compile"]
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, boom)
}

func TestShellExecute_EmptyCommandFails(t *testing.T) {
	root := t.TempDir()

	bc, ok := runBuild(t, root, nil, "m:compile",
		mustRule(t, domain.KindShellExecute, "compile", domain.RuleOptions{}),
	)
	require.False(t, ok)

	res := bc.Results()["m:compile"]
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "no command")
}

func TestMissingSourceFailsRule(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "m"), 0o755))

	bc, ok := runBuild(t, root, nil, "m:stage",
		mustRule(t, domain.KindCopyFiles, "stage", domain.RuleOptions{
			Srcs: []string{"absent.txt"},
		}),
	)
	require.False(t, ok)

	res := bc.Results()["m:stage"]
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "source not found")
}
