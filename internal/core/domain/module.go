package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Module is a flat namespace of rules sharing a path prefix. Modules are
// keyed by rule name; the rule's full path is assigned when it is added.
type Module struct {
	path  string
	rules map[string]*Rule
	order []string
}

// NewModule creates a module with the given path and adds the rules to it.
// The path is typically the module file's location and becomes the prefix
// of every contained rule's path.
func NewModule(path string, rules ...*Rule) (*Module, error) {
	m := &Module{
		path:  path,
		rules: make(map[string]*Rule, len(rules)),
	}
	if err := m.AddRules(rules); err != nil {
		return nil, err
	}
	return m, nil
}

// Path returns the module path.
func (m *Module) Path() string { return m.path }

// AddRule adds a single rule to the module. The rule's name must be unique
// within the module and the rule must not already belong to another module.
func (m *Module) AddRule(r *Rule) error {
	return m.AddRules([]*Rule{r})
}

// AddRules adds rules to the module. Uniqueness is checked for the whole
// batch before any rule is attached.
func (m *Module) AddRules(rules []*Rule) error {
	for _, r := range rules {
		if _, exists := m.rules[r.Name()]; exists {
			return zerr.With(zerr.With(ErrDuplicateRule, "rule", r.Name()), "module", m.path)
		}
	}
	for _, r := range rules {
		if err := r.setParentModule(m); err != nil {
			return err
		}
		m.rules[r.Name()] = r
		m.order = append(m.order, r.Name())
	}
	return nil
}

// Rule looks up a rule by name. A leading ':' is tolerated, so both "foo"
// and ":foo" resolve the same rule.
func (m *Module) Rule(name string) (*Rule, bool) {
	name = strings.TrimPrefix(name, ":")
	r, ok := m.rules[name]
	return r, ok
}

// Rules returns all rules in declaration order.
func (m *Module) Rules() []*Rule {
	rules := make([]*Rule, 0, len(m.order))
	for _, name := range m.order {
		rules = append(rules, m.rules[name])
	}
	return rules
}
