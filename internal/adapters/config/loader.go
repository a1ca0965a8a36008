// Package config loads module definitions from BUILD.yaml files.
package config

import (
	"os"
	"sort"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the module definition file looked for in each module
// directory.
const DefaultFileName = "BUILD.yaml"

// BuildFile represents the structure of a BUILD.yaml module file.
type BuildFile struct {
	Rules map[string]RuleDTO `yaml:"rules"`
}

// RuleDTO represents one rule declaration in a module file.
type RuleDTO struct {
	Kind         string            `yaml:"kind"`
	Srcs         []string          `yaml:"srcs"`
	Deps         []string          `yaml:"deps"`
	SrcFilter    string            `yaml:"src_filter"`
	Out          string            `yaml:"out"`
	Command      []string          `yaml:"command"`
	Params       map[string]string `yaml:"params"`
	NewExtension string            `yaml:"new_extension"`
}

// Load reads a module file and returns the module it declares, with rules
// attached in name order for deterministic graph construction.
func Load(path, modulePath string) (*domain.Module, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is resolved from the project root
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read module file"), "path", path)
	}
	return Parse(data, modulePath)
}

// Parse builds a module from raw module file content.
func Parse(data []byte, modulePath string) (*domain.Module, error) {
	var file BuildFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse module file"), "module", modulePath)
	}

	names := make([]string, 0, len(file.Rules))
	for name := range file.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]*domain.Rule, 0, len(names))
	for _, name := range names {
		rule, err := buildRule(name, file.Rules[name])
		if err != nil {
			return nil, zerr.With(err, "module", modulePath)
		}
		rules = append(rules, rule)
	}

	return domain.NewModule(modulePath, rules...)
}

func buildRule(name string, dto RuleDTO) (*domain.Rule, error) {
	kind, err := ruleKind(dto.Kind)
	if err != nil {
		return nil, zerr.With(err, "rule", name)
	}
	return domain.NewRule(kind, name, domain.RuleOptions{
		Srcs:         dto.Srcs,
		Deps:         dto.Deps,
		SrcFilter:    dto.SrcFilter,
		Out:          dto.Out,
		Command:      dto.Command,
		Params:       dto.Params,
		NewExtension: dto.NewExtension,
	})
}

func ruleKind(kind string) (domain.RuleKind, error) {
	switch domain.RuleKind(kind) {
	case domain.KindFileSet, domain.KindCopyFiles, domain.KindConcatFiles,
		domain.KindTemplateFiles, domain.KindShellExecute:
		return domain.RuleKind(kind), nil
	case "":
		return "", zerr.New("rule is missing a kind")
	default:
		return "", zerr.With(zerr.New("unknown rule kind"), "kind", kind)
	}
}
