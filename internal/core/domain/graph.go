package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// RuleGraph is a directed acyclic graph over rule identities. Edges point
// from a dependency's node to the dependent's node. Rules are pulled into
// the graph lazily, resolving through the project, and every insertion is
// followed by a cycle check so callers can never compute a sequence over a
// cyclic graph.
type RuleGraph struct {
	project *Project
	nodes   map[string]*ruleNode
}

type ruleNode struct {
	rule *Rule
	// deps are incoming edges (rules this one depends on), dependents are
	// outgoing edges. Both are insertion-ordered and deduplicated.
	deps       []*ruleNode
	dependents []*ruleNode
}

func (n *ruleNode) addEdgeTo(dependent *ruleNode) {
	for _, existing := range n.dependents {
		if existing == dependent {
			return
		}
	}
	n.dependents = append(n.dependents, dependent)
	dependent.deps = append(dependent.deps, n)
}

// NewRuleGraph creates an empty graph resolving rules through project.
func NewRuleGraph(project *Project) *RuleGraph {
	return &RuleGraph{
		project: project,
		nodes:   make(map[string]*ruleNode),
	}
}

// HasRule reports whether the rule path has been resolved and added to the
// graph. It never triggers resolution.
func (g *RuleGraph) HasRule(rulePath string) bool {
	_, ok := g.nodes[rulePath]
	return ok
}

// HasDependency reports whether rulePath transitively depends on
// ancestorPath. A rule trivially depends on itself. Both rules must already
// be present in the graph.
func (g *RuleGraph) HasDependency(rulePath, ancestorPath string) (bool, error) {
	node, ok := g.nodes[rulePath]
	if !ok {
		return false, zerr.With(ErrRuleNotFound, "path", rulePath)
	}
	ancestor, ok := g.nodes[ancestorPath]
	if !ok {
		return false, zerr.With(ErrRuleNotFound, "path", ancestorPath)
	}

	// Walk forward from the ancestor; reaching node means node depends on it.
	if ancestor == node {
		return true, nil
	}
	seen := map[*ruleNode]struct{}{ancestor: {}}
	stack := []*ruleNode{ancestor}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dependent := range current.dependents {
			if dependent == node {
				return true, nil
			}
			if _, ok := seen[dependent]; !ok {
				seen[dependent] = struct{}{}
				stack = append(stack, dependent)
			}
		}
	}
	return false, nil
}

// EnsurePresent resolves each rule path, inserts any unseen rules along
// with their transitive dependencies, wires dependency edges, and verifies
// the graph is still acyclic.
func (g *RuleGraph) EnsurePresent(rulePaths []string, requestingModule *Module) error {
	if err := g.ensurePresent(rulePaths, requestingModule); err != nil {
		return err
	}
	return g.checkAcyclic()
}

// AddModuleRules pulls every rule of the module (and anything they depend
// on) into the graph.
func (g *RuleGraph) AddModuleRules(m *Module) error {
	paths := make([]string, 0, len(m.Rules()))
	for _, r := range m.Rules() {
		paths = append(paths, r.Path())
	}
	return g.EnsurePresent(paths, m)
}

func (g *RuleGraph) ensurePresent(rulePaths []string, requestingModule *Module) error {
	// Resolve and insert the requested batch, recursing into dependencies.
	rules := make([]*Rule, 0, len(rulePaths))
	for _, rulePath := range rulePaths {
		rule, err := g.project.ResolveRule(rulePath, requestingModule)
		if err != nil {
			return err
		}
		rules = append(rules, rule)

		if _, ok := g.nodes[rule.Path()]; ok {
			continue
		}
		g.nodes[rule.Path()] = &ruleNode{rule: rule}

		var depRulePaths []string
		for _, dep := range rule.DependentPaths() {
			if IsRulePath(dep) {
				depRulePaths = append(depRulePaths, dep)
			}
		}
		if len(depRulePaths) > 0 {
			if err := g.ensurePresent(depRulePaths, rule.ParentModule()); err != nil {
				return err
			}
		}
	}

	// All nodes for this batch and below exist; wire the edges.
	for _, rule := range rules {
		node := g.nodes[rule.Path()]
		for _, dep := range rule.DependentPaths() {
			if !IsRulePath(dep) {
				continue
			}
			depRule, err := g.project.ResolveRule(dep, rule.ParentModule())
			if err != nil {
				return err
			}
			depNode := g.nodes[depRule.Path()]
			depNode.addEdgeTo(node)
		}
	}
	return nil
}

// checkAcyclic runs a depth-first search over the whole graph and returns
// ErrCycleDetected with the offending cycle path if one exists.
func (g *RuleGraph) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[*ruleNode]int, len(g.nodes))
	var path []*ruleNode

	var visit func(n *ruleNode) error
	visit = func(n *ruleNode) error {
		state[n] = visiting
		path = append(path, n)
		for _, dependent := range n.dependents {
			switch state[dependent] {
			case visiting:
				return g.cycleError(path, dependent)
			case unvisited:
				if err := visit(dependent); err != nil {
					return err
				}
			}
		}
		state[n] = done
		path = path[:len(path)-1]
		return nil
	}

	for _, n := range g.nodes {
		if state[n] == unvisited {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *RuleGraph) cycleError(path []*ruleNode, repeated *ruleNode) error {
	start := 0
	for i, n := range path {
		if n == repeated {
			start = i
			break
		}
	}
	var b strings.Builder
	for _, n := range path[start:] {
		b.WriteString(n.rule.Path())
		b.WriteString(" -> ")
	}
	b.WriteString(repeated.rule.Path())
	return zerr.With(ErrCycleDetected, "cycle", b.String())
}

// Sequence computes a dependencies-first topological ordering of the
// sub-graph reachable from the target rule paths. Rules not needed by any
// target are excluded even if present in the graph; each rule appears at
// most once regardless of how many targets share it.
func (g *RuleGraph) Sequence(targetPaths []string) ([]*Rule, error) {
	if err := g.EnsurePresent(targetPaths, nil); err != nil {
		return nil, err
	}

	visited := make(map[*ruleNode]struct{})
	var sequence []*Rule

	// Post-order depth-first over dependency edges yields every rule after
	// everything it depends on. checkAcyclic has already run, so the walk
	// terminates.
	var visit func(n *ruleNode)
	visit = func(n *ruleNode) {
		if _, ok := visited[n]; ok {
			return
		}
		visited[n] = struct{}{}
		for _, dep := range n.deps {
			visit(dep)
		}
		sequence = append(sequence, n.rule)
	}

	for _, targetPath := range targetPaths {
		rule, err := g.project.ResolveRule(targetPath, nil)
		if err != nil {
			return nil, err
		}
		node, ok := g.nodes[rule.Path()]
		if !ok {
			return nil, zerr.With(ErrRuleNotFound, "path", targetPath)
		}
		visit(node)
	}
	return sequence, nil
}
